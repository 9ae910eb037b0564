package cart

// GroupBuilderKey is the data bag key the promotion processor publishes the
// group builder under, so group-based discount rules can resolve grouped
// line items during calculation.
const GroupBuilderKey = "line-item-group-builder"

// GroupDefinition describes how goods are packaged into groups: every full
// pack of Count matching items forms one group.
type GroupDefinition struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Group is one package of goods line items.
type Group struct {
	Items LineItemCollection
}

// GroupBuilder packages cart goods according to group definitions.
type GroupBuilder struct{}

// Build returns the complete groups per definition id. Remainders that do
// not fill a pack are discarded.
func (GroupBuilder) Build(definitions []GroupDefinition, c *Cart) map[string][]Group {
	result := make(map[string][]Group, len(definitions))
	for _, def := range definitions {
		if def.Count <= 0 {
			continue
		}
		goods := c.Goods()
		var groups []Group
		for len(goods) >= def.Count {
			groups = append(groups, Group{Items: goods[:def.Count]})
			goods = goods[def.Count:]
		}
		result[def.ID] = groups
	}
	return result
}
