// Package region knows the districts of Kerala and the panchayats within them.
package region

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed kerala.yml
var keralaYAML []byte

type District struct {
	Name       string   `yaml:"name" json:"name"`
	Panchayats []string `yaml:"panchayats" json:"panchayats"`
}

// Directory answers district and panchayat lookups. Matching ignores case.
type Directory struct {
	districts []District
	byName    map[string]int
	owner     map[string]string
}

// Load parses the embedded district table.
func Load() (*Directory, error) {
	var doc struct {
		Districts []District `yaml:"districts"`
	}
	if err := yaml.Unmarshal(keralaYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode region data: %w", err)
	}

	d := &Directory{
		districts: doc.Districts,
		byName:    make(map[string]int, len(doc.Districts)),
		owner:     make(map[string]string),
	}
	for i, district := range doc.Districts {
		d.byName[key(district.Name)] = i
		for _, p := range district.Panchayats {
			if _, taken := d.owner[key(p)]; !taken {
				d.owner[key(p)] = district.Name
			}
		}
	}
	return d, nil
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Districts returns district names in table order.
func (d *Directory) Districts() []string {
	names := make([]string, 0, len(d.districts))
	for _, district := range d.districts {
		names = append(names, district.Name)
	}
	return names
}

// District returns the canonical name of a district and whether it is known.
func (d *Directory) District(name string) (string, bool) {
	i, ok := d.byName[key(name)]
	if !ok {
		return "", false
	}
	return d.districts[i].Name, true
}

// Panchayats lists the panchayats of a district.
func (d *Directory) Panchayats(district string) ([]string, bool) {
	i, ok := d.byName[key(district)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), d.districts[i].Panchayats...), true
}

// DistrictOf finds the district a listed panchayat belongs to.
func (d *Directory) DistrictOf(panchayat string) (string, bool) {
	name, ok := d.owner[key(panchayat)]
	return name, ok
}

// Contains reports whether panchayat is listed under district.
func (d *Directory) Contains(district, panchayat string) bool {
	owner, ok := d.owner[key(panchayat)]
	if !ok {
		return false
	}
	canonical, ok := d.District(district)
	return ok && owner == canonical
}
