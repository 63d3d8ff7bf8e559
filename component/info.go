package component

import "time"

// Info is a snapshot of a component for structure listings and events.
type Info struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Type      string     `json:"type"`
	State     string     `json:"state"`
	Ports     []PortInfo `json:"ports"`
	Children  []string   `json:"children,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Describe returns an Info snapshot of c.
func (c *Component) Describe() Info {
	info := Info{
		ID:        c.id.String(),
		Name:      c.name,
		Path:      c.QualifiedName(),
		Type:      c.TypeName(),
		State:     c.State().String(),
		Ports:     []PortInfo{},
		Timestamp: time.Now(),
	}
	for _, p := range c.Ports() {
		info.Ports = append(info.Ports, p.Info())
	}
	for _, child := range c.Children() {
		info.Children = append(info.Children, child.Name())
	}
	return info
}
