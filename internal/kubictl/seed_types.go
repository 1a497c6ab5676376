package kubictl

// SeedConfig describes projects to populate through the API.
type SeedConfig struct {
	APIURL   string       `yaml:"api_url"`
	APIKey   string       `yaml:"api_key"`
	Projects []ProjectDef `yaml:"projects"`
}

// ProjectDef names an existing project. Projects are owned by the account
// system and are not created by seeding.
type ProjectDef struct {
	ID       string       `yaml:"id"`
	Services []ServiceDef `yaml:"services"`
}

type ServiceDef struct {
	Name         string `yaml:"name"`
	SourceKind   string `yaml:"source_kind"`
	ImageURL     string `yaml:"image_url"`
	ImageTag     string `yaml:"image_tag"`
	Installation string `yaml:"installation"`
	Repository   string `yaml:"repository"`
	Branch       string `yaml:"branch"`
	Subdomain    string `yaml:"subdomain"`
	Port         int    `yaml:"port"`
	Replicas     *int   `yaml:"replicas"`
	StartCommand string `yaml:"start_command"`

	Variables  []VariableDef  `yaml:"variables"`
	References []ReferenceDef `yaml:"references"`
}

type VariableDef struct {
	Key    string `yaml:"key"`
	Value  string `yaml:"value"`
	Secret bool   `yaml:"secret"`
}

// ReferenceDef makes the service read Key from the named service in the same
// project.
type ReferenceDef struct {
	Service string `yaml:"service"`
	Key     string `yaml:"key"`
	Alias   string `yaml:"alias"`
}
