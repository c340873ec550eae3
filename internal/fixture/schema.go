package fixture

// file mirrors the layout of a fixture module. TOML and YAML fixtures share it.
type file struct {
	Module       moduleSection        `toml:"module" yaml:"module"`
	Protocols    []protocolSection    `toml:"protocol" yaml:"protocol"`
	Types        []typeSection        `toml:"type" yaml:"type"`
	Funcs        []funcSection        `toml:"func" yaml:"func"`
	Conformances []conformanceSection `toml:"conformance" yaml:"conformance"`
	Queries      []querySection       `toml:"query" yaml:"query"`
}

type moduleSection struct {
	Name string `toml:"name" yaml:"name"`
	// Format is the fixture format version; empty means 1.0.
	Format string `toml:"format" yaml:"format"`
}

type protocolSection struct {
	Name         string               `toml:"name" yaml:"name"`
	Refines      []string             `toml:"refines" yaml:"refines"`
	Assoc        []assocSection       `toml:"assoc" yaml:"assoc"`
	Requirements []requirementSection `toml:"requirements" yaml:"requirements"`
}

type assocSection struct {
	Name    string   `toml:"name" yaml:"name"`
	Bounds  []string `toml:"bounds" yaml:"bounds"`
	Default string   `toml:"default" yaml:"default"`
}

type requirementSection struct {
	Name    string `toml:"name" yaml:"name"`
	Kind    string `toml:"kind" yaml:"kind"`
	Default string `toml:"default" yaml:"default"`
}

type typeSection struct {
	Name       string         `toml:"name" yaml:"name"`
	Params     []paramSection `toml:"params" yaml:"params"`
	Parent     string         `toml:"parent" yaml:"parent"`
	Superclass string         `toml:"superclass" yaml:"superclass"`
}

type paramSection struct {
	Name   string   `toml:"name" yaml:"name"`
	Bounds []string `toml:"bounds" yaml:"bounds"`
}

type funcSection struct {
	Name    string `toml:"name" yaml:"name"`
	Context string `toml:"context" yaml:"context"`
	Kind    string `toml:"kind" yaml:"kind"`
	Checked *bool  `toml:"checked" yaml:"checked"`
}

type conformanceSection struct {
	Type      string            `toml:"type" yaml:"type"`
	Protocol  string            `toml:"protocol" yaml:"protocol"`
	Extension bool              `toml:"extension" yaml:"extension"`
	State     string            `toml:"state" yaml:"state"`
	Lazy      bool              `toml:"lazy" yaml:"lazy"`
	Types     map[string]string `toml:"types" yaml:"types"`
	Witnesses map[string]string `toml:"witnesses" yaml:"witnesses"`
	Defaults  []string          `toml:"defaults" yaml:"defaults"`
}

type querySection struct {
	Type        string `toml:"type" yaml:"type"`
	Protocol    string `toml:"protocol" yaml:"protocol"`
	Assoc       string `toml:"assoc" yaml:"assoc"`
	Requirement string `toml:"requirement" yaml:"requirement"`
	Expect      string `toml:"expect" yaml:"expect"`
}
