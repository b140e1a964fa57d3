package templatefile

// yamlTemplate is the intermediate struct for parsing a template bundle
// entry. Maps YAML fields to a Definition.
type yamlTemplate struct {
	Bank        string `yaml:"bank"`
	Pattern     string `yaml:"pattern"`
	Kind        string `yaml:"kind"`
	Sample      string `yaml:"sample,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// yamlTemplatesFile represents the top-level structure of a bundle file:
// a "templates" array at the top level.
type yamlTemplatesFile struct {
	Templates []yamlTemplate `yaml:"templates"`
}
