package resolve

import "testing"

func TestCache_FirstWriterWins(t *testing.T) {
	c := NewCache()
	k := Key{Path: "a.wx", Symbol: "App"}

	c.Put(k, Origin{Kind: OriginComponent}, nil)
	c.Put(k, Origin{Kind: OriginElement}, nil)

	o, ok := c.Get(k)
	if !ok || o.Kind != OriginComponent {
		t.Errorf("Get() = %+v, %v; want the first write", o, ok)
	}
}

func TestCache_ClearFile(t *testing.T) {
	c := NewCache()
	c.Put(Key{"a.wx", "X"}, Origin{Kind: OriginComponent}, []string{"b.wx", "c.wx"})
	c.Put(Key{"b.wx", "X"}, Origin{Kind: OriginComponent}, []string{"c.wx"})
	c.Put(Key{"d.wx", "Y"}, Origin{Kind: OriginElement}, nil)

	c.ClearFile("c.wx")

	if _, ok := c.Get(Key{"a.wx", "X"}); ok {
		t.Error("entry depending on c.wx survived")
	}
	if _, ok := c.Get(Key{"b.wx", "X"}); ok {
		t.Error("entry depending on c.wx survived")
	}
	if _, ok := c.Get(Key{"d.wx", "Y"}); !ok {
		t.Error("unrelated entry was dropped")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	// clearing a file with no entries is a no-op
	c.ClearFile("zzz.wx")
	if c.Len() != 1 {
		t.Errorf("Len() after no-op clear = %d, want 1", c.Len())
	}
}

func TestCache_ClearFileByKeyPath(t *testing.T) {
	c := NewCache()
	c.Put(Key{"a.wx", "X"}, Origin{Kind: OriginComponent}, nil)
	c.Put(Key{"a.wx", "Y"}, Origin{Kind: OriginElement}, nil)

	c.ClearFile("a.wx")
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCache_ClearAll(t *testing.T) {
	c := NewCache()
	c.Put(Key{"a.wx", "X"}, Origin{Kind: OriginComponent}, []string{"b.wx"})
	c.Put(Key{"b.wx", "Z"}, Origin{Kind: OriginComponent}, nil)

	c.ClearAll()
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if _, ok := c.Get(Key{"a.wx", "X"}); ok {
		t.Error("entry survived ClearAll")
	}

	// the cache stays usable afterwards
	c.Put(Key{"a.wx", "X"}, Origin{Kind: OriginElement}, nil)
	if o, ok := c.Get(Key{"a.wx", "X"}); !ok || o.Kind != OriginElement {
		t.Errorf("Get() after refill = %+v, %v", o, ok)
	}
}
