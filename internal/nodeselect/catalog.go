package nodeselect

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Node struct {
	URL   string `yaml:"url"`
	Label string `yaml:"label"`
}

type networkNodes struct {
	Nodes []Node `yaml:"nodes"`
}

// Catalog is the static list of candidate RPC endpoints per network.
type Catalog struct {
	Networks map[model.Network]networkNodes `yaml:"networks"`
}

// DefaultCatalog returns the built-in seed list.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes YAML (JSON is accepted as a YAML subset) and checks
// every url.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse node catalog: %w", err)
	}
	for network, nodes := range c.Networks {
		if _, ok := model.ParseNetwork(string(network)); !ok {
			return nil, fmt.Errorf("node catalog: unknown network %q", network)
		}
		for i, n := range nodes.Nodes {
			u, err := url.Parse(n.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, fmt.Errorf("node catalog: %s node %d: invalid url %q", network, i, n.URL)
			}
		}
	}
	return &c, nil
}

// Endpoints lists the candidate URLs for network in catalog order.
func (c *Catalog) Endpoints(network model.Network) []string {
	nodes := c.Networks[network].Nodes
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.URL)
	}
	return out
}
