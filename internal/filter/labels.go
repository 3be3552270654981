package filter

import (
	"fmt"

	"github.com/sells-group/gridfinder/internal/model"
)

// NoCategoriesLabel is shown when no category is selected.
const NoCategoriesLabel = "No POI categories selected"

// Labels returns "<category>: Y|N" for each selected category, in display order.
func Labels(p model.ScoredPoint, sel Selection) []string {
	var labels []string
	for _, c := range sel.Selected() {
		labels = append(labels, fmt.Sprintf("%s: %s", c.Label(), yesNo(p.POI.Has(c))))
	}
	return labels
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
