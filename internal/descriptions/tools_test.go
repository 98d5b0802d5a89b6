package descriptions

import (
	"strings"
	"testing"
)

func TestGetAllToolNames(t *testing.T) {
	names := GetAllToolNames()
	want := []string{"cerfa_field_map", "cerfa_generate", "cerfa_list", "cerfa_template_fields", "cerfa_validate_pdf"}

	if len(names) != len(want) {
		t.Fatalf("GetAllToolNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("GetAllToolNames()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		desc := GetToolDescription(name)
		if !strings.Contains(desc, "**When to use:**") {
			t.Errorf("description of %s has no usage section", name)
		}
	}

	if got := GetToolDescription("pdf_read_file"); got != "Tool description not available" {
		t.Errorf("GetToolDescription(unknown) = %q", got)
	}
}
