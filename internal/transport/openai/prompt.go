package openai

import (
	"fmt"
	"strings"

	"github.com/urbo-labs/casamatch/internal/domain"
)

const systemPrompt = `You are a real-estate listing parser for Santa Cruz de la Sierra, Bolivia. ` +
	`Listings are written in Spanish. Respond with a single JSON object and nothing else. ` +
	`Use null for any field the text does not state. Never guess or convert currencies.`

const schemaBlock = `{
  "price": number or null,
  "currency": "USD" or "BOB" or null,
  "bedrooms": integer or null,
  "bathrooms": integer or null,
  "garages": integer or null,
  "surface_m2": number or null,
  "zone": string or null,
  "property_type": string or null,
  "operation": "venta" or "alquiler" or "anticretico" or null,
  "agent_name": string or null,
  "agent_contact": string or null,
  "amenities": array of strings
}`

// BuildPrompt renders one of the two prompt shapes: a fill-the-gap prompt
// listing only the unresolved fields, or a full-extraction prompt when the
// pattern stage found nothing.
func BuildPrompt(req domain.ParseRequest) string {
	var b strings.Builder

	if len(req.MissingFields) > 0 {
		fmt.Fprintf(&b, "Extract ONLY these fields from the listing: %s.\n",
			strings.Join(req.MissingFields, ", "))
		b.WriteString("Set every other key to null.\n\n")
	} else {
		b.WriteString("Extract all fields from the listing.\n\n")
	}

	b.WriteString("JSON schema:\n")
	b.WriteString(schemaBlock)
	b.WriteString("\n\nListing title: ")
	b.WriteString(req.Title)
	b.WriteString("\nListing description: ")
	b.WriteString(req.Description)

	return b.String()
}
