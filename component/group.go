package component

// Group is a component without ports of its own. It only structures the tree.
type Group struct {
	Component
}
