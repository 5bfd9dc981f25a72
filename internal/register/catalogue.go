// internal/register/catalogue.go
package register

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Type string

const (
	TypeUint16   Type = "UINT16"
	TypeInt16    Type = "INT16"
	TypeUint32   Type = "UINT32"
	TypeInt32    Type = "INT32"
	TypeString32 Type = "STRING32"
)

type Access string

const (
	ReadOnly  Access = "RO"
	WriteOnly Access = "WO"
	ReadWrite Access = "RW"
)

// Info is the static metadata of one register (or register group).
type Info struct {
	Address     uint16
	Registers   uint16
	Type        Type
	Access      Access
	Name        string
	Description string
}

//go:embed catalogue.yaml
var catalogueYAML []byte

type catalogueFile struct {
	Registers []entryConfig `yaml:"registers"`
	Ranges    []rangeConfig `yaml:"ranges"`
}

type entryConfig struct {
	Address     uint16 `yaml:"address"`
	Count       uint16 `yaml:"count"`
	Type        Type   `yaml:"type"`
	Access      Access `yaml:"access"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type rangeConfig struct {
	Base        uint16 `yaml:"base"`
	Stride      uint16 `yaml:"stride"`
	Per         string `yaml:"per"` // "module" | "channel"
	Count       uint16 `yaml:"count"`
	Type        Type   `yaml:"type"`
	Access      Access `yaml:"access"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

var (
	catalogueOnce sync.Once
	catalogue     []Info
)

// Catalogue returns all known registers sorted by address.
// The returned slice MUST NOT be modified.
func Catalogue() []Info {
	catalogueOnce.Do(func() {
		c, err := parseCatalogue(catalogueYAML)
		if err != nil {
			// embedded at build time; unreachable unless the file is corrupt
			panic(fmt.Sprintf("register: embedded catalogue: %v", err))
		}
		catalogue = c
	})
	return catalogue
}

func parseCatalogue(data []byte) ([]Info, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	var out []Info

	for _, e := range f.Registers {
		out = append(out, Info{
			Address:     e.Address,
			Registers:   countOrOne(e.Count),
			Type:        e.Type,
			Access:      e.Access,
			Name:        e.Name,
			Description: e.Description,
		})
	}

	for _, r := range f.Ranges {
		switch r.Per {
		case "module":
			for m := 1; m <= MaxModules; m++ {
				rep := strings.NewReplacer("{module}", strconv.Itoa(m))
				out = append(out, Info{
					Address:     Address(r.Base, r.Stride, m, 1),
					Registers:   countOrOne(r.Count),
					Type:        r.Type,
					Access:      r.Access,
					Name:        rep.Replace(r.Name),
					Description: rep.Replace(r.Description),
				})
			}
		case "channel":
			for m := 1; m <= MaxModules; m++ {
				for ch := 1; ch <= ChannelStride; ch++ {
					rep := strings.NewReplacer("{module}", strconv.Itoa(m), "{channel}", strconv.Itoa(ch))
					out = append(out, Info{
						Address:     Address(r.Base, r.Stride, m, ch),
						Registers:   countOrOne(r.Count),
						Type:        r.Type,
						Access:      r.Access,
						Name:        rep.Replace(r.Name),
						Description: rep.Replace(r.Description),
					})
				}
			}
		default:
			return nil, fmt.Errorf("range 0x%04X: unknown per %q", r.Base, r.Per)
		}
	}

	seen := make(map[uint16]string, len(out))
	for _, in := range out {
		switch in.Type {
		case TypeUint16, TypeInt16, TypeUint32, TypeInt32, TypeString32:
		default:
			return nil, fmt.Errorf("register 0x%04X: unknown type %q", in.Address, in.Type)
		}
		switch in.Access {
		case ReadOnly, WriteOnly, ReadWrite:
		default:
			return nil, fmt.Errorf("register 0x%04X: unknown access %q", in.Address, in.Access)
		}
		if prev, ok := seen[in.Address]; ok {
			return nil, fmt.Errorf("register 0x%04X: defined twice (%q, %q)", in.Address, prev, in.Name)
		}
		seen[in.Address] = in.Name
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func countOrOne(n uint16) uint16 {
	if n == 0 {
		return 1
	}
	return n
}

// Lookup returns the register starting at addr.
func Lookup(addr uint16) (Info, bool) {
	c := Catalogue()
	i := sort.Search(len(c), func(i int) bool { return c[i].Address >= addr })
	if i < len(c) && c[i].Address == addr {
		return c[i], true
	}
	return Info{}, false
}

// Find returns registers whose name contains pattern (case-insensitive).
func Find(pattern string) []Info {
	p := strings.ToLower(pattern)
	var out []Info
	for _, in := range Catalogue() {
		if strings.Contains(strings.ToLower(in.Name), p) {
			out = append(out, in)
		}
	}
	return out
}

// Filter returns registers whose name or description contains pattern
// (case-insensitive). An empty pattern matches everything.
func Filter(pattern string) []Info {
	if pattern == "" {
		return Catalogue()
	}
	p := strings.ToLower(pattern)
	var out []Info
	for _, in := range Catalogue() {
		if strings.Contains(strings.ToLower(in.Name), p) ||
			strings.Contains(strings.ToLower(in.Description), p) {
			out = append(out, in)
		}
	}
	return out
}

// Describe renders the metadata of the register at addr.
func Describe(addr uint16) string {
	in, ok := Lookup(addr)
	if !ok {
		return fmt.Sprintf("Register at address 0x%04X not found", addr)
	}
	return fmt.Sprintf(
		"Address: 0x%04X (%d dec)\nRegisters: %d\nType: %s\nAccess: %s\nName: %s\nDescription: %s",
		in.Address, in.Address,
		in.Registers,
		in.Type,
		in.Access,
		in.Name,
		in.Description,
	)
}
