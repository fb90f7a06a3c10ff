package engine

const (
	defaultStdoutMaxBytes int64 = 32 << 20
	defaultStderrMaxBytes int64 = 64 << 10
)

// Config controls sandbox engine behavior.
type Config struct {
	// UseHelper routes every process through the sandbox-init helper, which applies
	// rlimits and seccomp before exec. Without it only the wall clock is enforced.
	UseHelper      bool   `yaml:"useHelper"`
	HelperPath     string `yaml:"helperPath"`
	EnableSeccomp  bool   `yaml:"enableSeccomp"`
	SeccompProfile string `yaml:"seccompProfile"`

	// EnableCgroup places each process in its own cgroup v2 leaf for memory accounting.
	EnableCgroup bool   `yaml:"enableCgroup"`
	CgroupRoot   string `yaml:"cgroupRoot"`

	StdoutMaxBytes int64 `yaml:"stdoutMaxBytes"`
	StderrMaxBytes int64 `yaml:"stderrMaxBytes"`
}

func (c *Config) applyDefaults() {
	if c.StdoutMaxBytes <= 0 {
		c.StdoutMaxBytes = defaultStdoutMaxBytes
	}
	if c.StderrMaxBytes <= 0 {
		c.StderrMaxBytes = defaultStderrMaxBytes
	}
	if c.HelperPath == "" {
		c.HelperPath = "sandbox-init"
	}
}
