package state

// Namespaced confines a View to one key prefix inside SpaceContract. Keys
// seen by its users are unprefixed.
type Namespaced struct {
	base   View
	prefix []byte
}

// NewNamespaced returns the view of base under namespace ns.
func NewNamespaced(base View, ns []byte) *Namespaced {
	prefix := make([]byte, 0, 1+len(ns))
	prefix = append(prefix, byte(SpaceContract))
	prefix = append(prefix, ns...)
	return &Namespaced{base: base, prefix: prefix}
}

func (n *Namespaced) wrap(k Keylet) Keylet {
	key := make([]byte, 0, len(n.prefix)-1+1+len(k.Key))
	key = append(key, n.prefix[1:]...)
	key = append(key, byte(k.Space))
	key = append(key, k.Key...)
	return Keylet{Space: SpaceContract, Key: key}
}

func (n *Namespaced) full(raw []byte) []byte {
	out := make([]byte, 0, len(n.prefix)+len(raw))
	out = append(out, n.prefix...)
	return append(out, raw...)
}

func (n *Namespaced) Read(k Keylet) ([]byte, error)      { return n.base.Read(n.wrap(k)) }
func (n *Namespaced) Exists(k Keylet) (bool, error)      { return n.base.Exists(n.wrap(k)) }
func (n *Namespaced) Insert(k Keylet, data []byte) error { return n.base.Insert(n.wrap(k), data) }
func (n *Namespaced) Update(k Keylet, data []byte) error { return n.base.Update(n.wrap(k), data) }
func (n *Namespaced) Erase(k Keylet) error               { return n.base.Erase(n.wrap(k)) }

func (n *Namespaced) ForEach(prefix, after []byte, fn func(key, data []byte) bool) error {
	var fullAfter []byte
	if after != nil {
		fullAfter = n.full(after)
	}
	strip := len(n.prefix)
	return n.base.ForEach(n.full(prefix), fullAfter, func(key, data []byte) bool {
		return fn(key[strip:], data)
	})
}
