package discord

// Field is one labeled line of an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a rich message block.
type Embed struct {
	Color       int     `json:"color"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// Message is the JSON body of a webhook execution.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds"`
}

// FieldNames returns the names of all embed fields in order.
func (m Message) FieldNames() []string {
	var names []string
	for _, e := range m.Embeds {
		for _, f := range e.Fields {
			names = append(names, f.Name)
		}
	}
	return names
}
