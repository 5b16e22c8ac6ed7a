package buildrun

import "testing"

func TestParseSchemeList(t *testing.T) {
	out := "Information about workspace \"Foo\":\n" +
		"    Schemes:\n" +
		"        Foo\n" +
		"        FooTests\n" +
		"\n" +
		"Some trailing section\n"

	names, err := parseSchemeList(out)
	if err != nil {
		t.Fatalf("parseSchemeList: %v", err)
	}
	if len(names) != 2 || names[0] != "Foo" || names[1] != "FooTests" {
		t.Fatalf("unexpected scheme list: %+v", names)
	}
}

func TestParseSchemeListMissingHeader(t *testing.T) {
	if _, err := parseSchemeList("nothing useful here\n"); err == nil {
		t.Fatalf("expected error when no Schemes: header present")
	}
}
