package validator

import (
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Parse(
	`You are an expert biologist. Analyze this image and determine if it shows the organism: {{.Organism}}

Scientific name: {{.Scientific}}

Respond in JSON format ONLY:
{
    "is_organism": boolean (true if this is clearly the organism or very similar),
    "confidence": number (0-100, where 100 is absolutely certain this is {{.Organism}}),
    "reason": "brief explanation of what you see in the image",
    "characteristics_found": ["list", "of", "identifying", "characteristics"]
}

IMPORTANT: Be strict but fair. If it's clearly a different organism, confidence should be low.
If it shows the right type but maybe wrong species, medium confidence.
Only high confidence if you're very sure it's the correct organism.`))

// BuildPrompt returns the classifier instruction for one organism.
func BuildPrompt(organismName, scientificName string) string {
	scientific := strings.TrimSpace(scientificName)
	if scientific == "" {
		scientific = "N/A"
	}

	var b strings.Builder
	_ = promptTemplate.Execute(&b, struct{ Organism, Scientific string }{
		Organism:   strings.TrimSpace(organismName),
		Scientific: scientific,
	})
	return b.String()
}
