package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	CerfaGenerateDescription = `Fill the official CERFA 10103*10 apprenticeship contract form and save it as a flattened PDF.

**When to use:** You have the contract data (employer, apprentice, masters, remuneration, CFA, training) and need the signed-ready government form.

**Why it's useful:** Maps the contract data onto the official fillable template, projects yes/no answers onto the form's paired checkboxes and flattens the result so nothing can be edited afterwards.

**Input:** ` + "`data`" + ` is a JSON object. Every section and every field is optional. Text fields accept strings or numbers; yes/no fields accept true, false or null; ` + "`apprentice.sex`" + ` accepts "M" or "F".

**Examples:**
• Minimal form: {"apprentice":{"lastName":"Dupont","firstName":"Jean","sex":"M"}}
• Remuneration: {"remuneration":{"year1":{"startDate1":"01/09/2025","percentage1":53,"reference1":"SMIC"}}}

**Common workflows:**
1. cerfa_field_map → build data → cerfa_generate → cerfa_validate_pdf
2. Regenerate after a correction: same data with the fix, a new file is written each time

**Best practices:** Review the skipped-field warnings in the response; unknown keys and fields missing from the template are reported, never fatal.`

	CerfaListDescription = `List the CERFA documents already generated for a contract, newest first.

**When to use:** Need to know whether a contract already has a generated form, which field mapping version produced it, or where it is stored.

**Examples:**
• "Show the CERFA history of contract 7c1e..."

**Best practices:** Requires the database to be configured; each entry carries its storage reference and generation time.`

	CerfaFieldMapDescription = `Show the field map used to fill the CERFA 10103*10 template.

**When to use:** Building contract data by hand, debugging a field that does not appear on the form, or checking the active mapping version.

**Why it's useful:** Lists every supported field id (dotted JSON path such as apprentice.lastName) with the physical template field or checkbox pair it fills.

**Best practices:** Field ids are exactly the keys accepted by cerfa_generate.`

	CerfaTemplateFieldsDescription = `Inspect the configured blank CERFA template and report how well it matches the field map.

**When to use:** After installing a new template revision, or when generation reports fields missing from the template.

**Why it's useful:** Lists every fillable field of the template with its type, and reports map entries missing from the template, template fields the map does not use, and fields of the wrong type.

**Best practices:** A complete report means every mapped field exists in the template with the expected type.`

	CerfaValidatePDFDescription = `Verify that a PDF opens with an independent reader and count its pages.

**When to use:** Before sending a generated CERFA, or to check a template file.

**Why it's useful:** Uses a reader that shares no code with the form filler, so a valid result means the document opens outside this service.

**Examples:**
• "Validate /srv/cerfas/cerfa-C-2025-001-1748779200000.pdf"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"cerfa_generate":        CerfaGenerateDescription,
	"cerfa_list":            CerfaListDescription,
	"cerfa_field_map":       CerfaFieldMapDescription,
	"cerfa_template_fields": CerfaTemplateFieldsDescription,
	"cerfa_validate_pdf":    CerfaValidatePDFDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
