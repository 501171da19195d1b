package contract

// Shape is the flattened view of a contract: every attribute and behavior
// member it exposes, ancestors first, in declaration order.
type Shape struct {
	Contract   *Contract
	Attributes []Attribute
	Behaviors  []Member
}

// AttributeNames returns the attribute names in order.
func (s Shape) AttributeNames() []string {
	names := make([]string, len(s.Attributes))
	for i, attr := range s.Attributes {
		names[i] = attr.Name
	}
	return names
}

// Inspect flattens c and its ancestors. Each ancestor is visited once even
// when reachable through several paths. A repeated attribute name keeps its
// first position and becomes mutable if any declaration of it is mutable.
func Inspect(c *Contract) Shape {
	shape := Shape{Contract: c}
	if c == nil {
		return shape
	}
	visited := make(map[*Contract]bool)
	index := make(map[string]int)
	var walk func(*Contract)
	walk = func(node *Contract) {
		if node == nil || visited[node] {
			return
		}
		visited[node] = true
		for _, parent := range node.Extends {
			walk(parent)
		}
		for _, attr := range node.Attributes {
			if pos, ok := index[attr.Name]; ok {
				shape.Attributes[pos].Mutable = shape.Attributes[pos].Mutable || attr.Mutable
				continue
			}
			index[attr.Name] = len(shape.Attributes)
			shape.Attributes = append(shape.Attributes, attr)
		}
		shape.Behaviors = append(shape.Behaviors, node.Behaviors...)
	}
	walk(c)
	return shape
}
