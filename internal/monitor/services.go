package monitor

import (
	_ "embed"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed services.yaml
var servicesYAML []byte

// UnknownService is reported for ports missing from the table.
const UnknownService = "unknown"

var (
	servicesOnce sync.Once
	serviceTable map[int]string
)

func loadServiceTable() {
	var doc struct {
		Services map[int]string `yaml:"services"`
	}
	// The embedded table is validated by tests, a broken edit fails loudly.
	if err := yaml.Unmarshal(servicesYAML, &doc); err != nil {
		panic("monitor: embedded services.yaml is invalid: " + err.Error())
	}
	serviceTable = doc.Services
}

// ServiceName classifies a destination port string from a kernel log line.
func ServiceName(port string) string {
	servicesOnce.Do(loadServiceTable)
	p, err := strconv.Atoi(port)
	if err != nil {
		return UnknownService
	}
	if name, ok := serviceTable[p]; ok {
		return name
	}
	return UnknownService
}
