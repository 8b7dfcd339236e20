package sponsorship

import (
	"database/sql/driver"
	"encoding/json"
	"sort"
	"strings"

	"github.com/neussi/comsas-uy1.com/core"
)

// Specialties
const (
	SpecialtyDataScience = "DS"
	SpecialtyNetwork     = "RESEAU"
	SpecialtySecurity    = "SECU"
	SpecialtySoftware    = "GL"
)

// Domains
const (
	DomainSoftwareEng       = "software_eng"
	DomainDataScience       = "data_science"
	DomainCybersecurity     = "cybersecurity"
	DomainCloudDevops       = "cloud_devops"
	DomainNetworkAdmin      = "network_admin"
	DomainMobileDev         = "mobile_dev"
	DomainWebDev            = "web_dev"
	DomainProductManagement = "product_management"
	DomainResearch          = "research"
	DomainConsulting        = "consulting"
)

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	Specialties = []Choice{
		{SpecialtyDataScience, "Data Science"},
		{SpecialtyNetwork, "Réseau et Système"},
		{SpecialtySecurity, "Sécurité Informatique"},
		{SpecialtySoftware, "Génie Logiciel"},
	}

	Domains = []Choice{
		{DomainSoftwareEng, "Génie Logiciel"},
		{DomainDataScience, "Data Science / AI"},
		{DomainCybersecurity, "Cybersécurité"},
		{DomainCloudDevops, "Cloud & DevOps"},
		{DomainNetworkAdmin, "Administration Réseaux"},
		{DomainMobileDev, "Développement Mobile"},
		{DomainWebDev, "Développement Web"},
		{DomainProductManagement, "Product Management"},
		{DomainResearch, "Recherche Académique"},
		{DomainConsulting, "Consulting / Audit"},
	}

	Competencies = []Choice{
		{"python", "Python"}, {"java", "Java"}, {"c_cpp", "C/C++"}, {"javascript", "JavaScript"},
		{"html_css", "HTML/CSS"}, {"react", "React/Next.js"}, {"flutter", "Flutter"},
		{"sql", "SQL/Database"}, {"git", "Git/GitHub"}, {"docker", "Docker"},
		{"ui_ux", "UI/UX Design"}, {"graphic_design", "Design Graphique"},
		{"communication", "Communication"}, {"project_management", "Gestion de Projet"},
	}

	MentorLevels = []Choice{
		{"L3", "Licence 3"}, {"ICT-L3", "ICT-L3"}, {"M1", "Master 1"}, {"M2", "Master 2"}, {"PHD", "Doctorat"},
	}

	MenteeLevels = []Choice{
		{"L1", "Licence 1"}, {"L2", "Licence 2"}, {"L3", "Licence 3"},
		{"ICT-L1", "ICT-L1"}, {"ICT-L2", "ICT-L2"}, {"ICT-L3", "ICT-L3"},
		{"M1", "Master 1"}, {"M2", "Master 2"}, {"PHD", "Doctorat"},
	}
)

func hasChoice(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// TagSet is a sorted set of lower-cased tags, stored as a JSON array.
type TagSet []string

// NewTagSet cleans, lowers and de-duplicates tags.
func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = core.CleanString(tag, true /* lower */)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		set = append(set, tag)
	}
	sort.Strings(set)
	return set
}

// ParseTagSet splits a comma separated list of tags.
func ParseTagSet(s string) TagSet {
	return NewTagSet(strings.Split(s, ",")...)
}

func (ts TagSet) Contains(tag string) bool {
	i := sort.SearchStrings(ts, tag)
	return i < len(ts) && ts[i] == tag
}

// IntersectionSize returns |ts ∩ other|. Both sets must be sorted.
func (ts TagSet) IntersectionSize(other TagSet) int {
	var n, i, j int
	for i < len(ts) && j < len(other) {
		switch {
		case ts[i] == other[j]:
			n++
			i++
			j++
		case ts[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return n
}

func (ts TagSet) String() string {
	return strings.Join(ts, ", ")
}

func (ts TagSet) Value() (driver.Value, error) {
	return core.StringList(ts).Value()
}

func (ts *TagSet) Scan(src interface{}) error {
	var list core.StringList
	if err := list.Scan(src); err != nil {
		return err
	}
	*ts = NewTagSet(list...)
	return nil
}

func (ts *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		// accept the comma separated form sent by plain HTML forms
		var s string
		if err2 := json.Unmarshal(data, &s); err2 != nil {
			return err
		}
		*ts = ParseTagSet(s)
		return nil
	}
	*ts = NewTagSet(tags...)
	return nil
}
