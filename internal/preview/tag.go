package preview

// TagKey is the attribute value that names a meta tag. It is a closed sum
// type: the only implementations are Name and Property.
type TagKey interface {
	String() string
	tagKey()
}

// Name is a key taken from a name, itemprop or rel attribute.
type Name string

// Property is a key taken from a property attribute.
type Property string

func (n Name) String() string     { return string(n) }
func (p Property) String() string { return string(p) }

func (Name) tagKey()     {}
func (Property) tagKey() {}

// MetaTag is one parsed key/content pair, in document order.
type MetaTag struct {
	Key     TagKey
	Content string
	Raw     string
}
