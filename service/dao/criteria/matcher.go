package criteria

import (
	"github.com/viant/whenly/service/dao"
)

// FilterByState reports whether an entity in the supplied state passes the
// "State" parameters. A parameter value may be a single state or a slice of
// accepted states; parameters with other names are ignored so stores can
// share parameter lists.
func FilterByState(state string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != "State" {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if state != actual {
				return false
			}
		case []string:
			found := false
			for _, candidate := range actual {
				if state == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
