package engine

// trieNode represents a node in the suffix trie, one label per level.
type trieNode struct {
	children map[string]*trieNode
	// Set when a suffix ends exactly at this node.
	// For example, "example.com" marks com->example.
	terminal bool
}

// suffixTrie indexes domain suffixes by reversed labels. It is built and
// dropped inside a single pass, so it carries no lock.
type suffixTrie struct {
	root *trieNode
}

func newSuffixTrie() *suffixTrie {
	return &suffixTrie{
		root: &trieNode{children: make(map[string]*trieNode)},
	}
}

// insert adds a suffix given as labels, e.g. ["example", "com"].
func (t *suffixTrie) insert(labels []string) {
	node := t.root

	// Insert in reverse order: com -> example
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		child := node.children[label]
		if child == nil {
			child = &trieNode{children: make(map[string]*trieNode)}
			node.children[label] = child
		}
		node = child
	}
	node.terminal = true
}

// covered reports whether an ancestor suffix of labels with between minLabels
// and maxLabels labels (inclusive) is in the trie.
func (t *suffixTrie) covered(labels []string, minLabels, maxLabels int) bool {
	node := t.root

	// Traverse in reverse: com -> example -> ads
	for depth := 1; depth <= maxLabels && depth <= len(labels); depth++ {
		node = node.children[labels[len(labels)-depth]]
		if node == nil {
			return false
		}
		if node.terminal && depth >= minLabels {
			return true
		}
	}
	return false
}
