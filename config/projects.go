package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Project is the metadata fed into the assistant's prompt for one project.
type Project struct {
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description,omitempty"`
	TechStack           []string `yaml:"tech_stack,omitempty"`
	BusinessAssumptions string   `yaml:"business_assumptions,omitempty"`
	AdditionalContext   string   `yaml:"additional_context,omitempty"`
}

type Projects struct {
	Projects      []Project `yaml:"projects"`
	ActiveProject string    `yaml:"active_project,omitempty"`

	path string
}

func LoadProjects(path string) (*Projects, error) {
	p := &Projects{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading projects: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing projects: %w", err)
	}
	return p, nil
}

func (p *Projects) Save() error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0644)
}

// Active returns the active project, or nil if none is selected.
func (p *Projects) Active() *Project {
	if p.ActiveProject == "" {
		return nil
	}
	for i := range p.Projects {
		if p.Projects[i].Name == p.ActiveProject {
			return &p.Projects[i]
		}
	}
	return nil
}

func (p *Projects) Add(project Project) error {
	p.Projects = append(p.Projects, project)
	return p.Save()
}

func (p *Projects) Remove(name string) error {
	kept := p.Projects[:0]
	for _, pr := range p.Projects {
		if pr.Name != name {
			kept = append(kept, pr)
		}
	}
	p.Projects = kept
	if p.ActiveProject == name {
		p.ActiveProject = ""
	}
	return p.Save()
}

func (p *Projects) SetActive(name string) error {
	p.ActiveProject = name
	return p.Save()
}
