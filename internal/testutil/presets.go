package testutil

// WithStandardData adds a small cross-crate dataset:
//
//	crateA    Display for Bar
//	crateB    Debug for Foo, Display for Foo
//	alloc     blanket ToString for T where T: Display
func (b *Builder) WithStandardData() *Builder {
	return b.
		WithModule("crateB",
			Rec("Debug", "Foo", Links("core/fmt/trait.Debug.html", "crateB/struct.Foo.html")),
			Rec("Display", "Foo", Links("core/fmt/trait.Display.html", "crateB/struct.Foo.html"))).
		WithModule("crateA",
			Rec("Display", "Bar", Links("core/fmt/trait.Display.html", "crateA/struct.Bar.html"))).
		WithModule("alloc",
			Rec("ToString", "T", Blanket("T: Display + ?Sized")))
}
