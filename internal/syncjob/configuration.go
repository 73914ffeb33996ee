package syncjob

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultRemoteNameConstant    = "origin"
	defaultCommitMessageConstant = "Add or update CSV files"
	defaultBotNameConstant       = "csvsync-bot"
	defaultBotEmailConstant      = "csvsync-bot@users.noreply.github.com"

	jobFilePathRequiredMessageConstant    = "job definition path must be provided"
	jobFileLoadErrorTemplateConstant      = "failed to load job definition: %w"
	jobFileParseErrorTemplateConstant     = "failed to parse job definition: %w"
	workspacePathRequiredMessageConstant  = "job definition must name a workspace path"
	scriptPathRequiredMessageConstant     = "job definition must name a script path"
)

// RepositoryDefinition names the workspace and its remote coordinates.
type RepositoryDefinition struct {
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
	Remote string `yaml:"remote"`
	Branch string `yaml:"branch"`
}

// ScriptDefinition names the external script and its runtime inputs.
type ScriptDefinition struct {
	Path                          string `yaml:"path"`
	Requirements                  string `yaml:"requirements"`
	CredentialEnvironmentVariable string `yaml:"credential_env"`
}

// ArtifactDefinition configures artifact detection.
type ArtifactDefinition struct {
	Patterns []string `yaml:"patterns"`
}

// CommitDefinition configures the automated commit.
type CommitDefinition struct {
	Message     string `yaml:"message"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// JobDefinition describes one sync pipeline loaded from a YAML job file.
type JobDefinition struct {
	Repository RepositoryDefinition `yaml:"repository"`
	Script     ScriptDefinition     `yaml:"script"`
	Artifacts  ArtifactDefinition   `yaml:"artifacts"`
	Commit     CommitDefinition     `yaml:"commit"`
}

// LoadJobDefinition reads a job file from disk, applies defaults, and validates it.
func LoadJobDefinition(filePath string) (JobDefinition, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return JobDefinition{}, errors.New(jobFilePathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return JobDefinition{}, fmt.Errorf(jobFileLoadErrorTemplateConstant, readError)
	}

	var definition JobDefinition
	if unmarshalError := yaml.Unmarshal(contentBytes, &definition); unmarshalError != nil {
		return JobDefinition{}, fmt.Errorf(jobFileParseErrorTemplateConstant, unmarshalError)
	}

	definition = definition.withDefaults()
	if validationError := definition.Validate(); validationError != nil {
		return JobDefinition{}, validationError
	}
	return definition, nil
}

// Validate confirms the definition names the inputs the pipeline requires.
func (definition JobDefinition) Validate() error {
	if len(strings.TrimSpace(definition.Repository.Path)) == 0 {
		return errors.New(workspacePathRequiredMessageConstant)
	}
	if len(strings.TrimSpace(definition.Script.Path)) == 0 {
		return errors.New(scriptPathRequiredMessageConstant)
	}
	return nil
}

func (definition JobDefinition) withDefaults() JobDefinition {
	if len(strings.TrimSpace(definition.Repository.Remote)) == 0 {
		definition.Repository.Remote = defaultRemoteNameConstant
	}
	if len(strings.TrimSpace(definition.Commit.Message)) == 0 {
		definition.Commit.Message = defaultCommitMessageConstant
	}
	if len(strings.TrimSpace(definition.Commit.AuthorName)) == 0 {
		definition.Commit.AuthorName = defaultBotNameConstant
	}
	if len(strings.TrimSpace(definition.Commit.AuthorEmail)) == 0 {
		definition.Commit.AuthorEmail = defaultBotEmailConstant
	}
	return definition
}
