package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	transporthttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	cloneURLRequiredMessageConstant     = "clone URL must be provided"
	cloneTargetRequiredMessageConstant  = "clone target directory must be provided"
	cloneErrorTemplateConstant          = "unable to clone %s: %w"
	headResolutionErrorTemplateConstant = "unable to resolve HEAD in %s: %w"
	tokenAuthUsernameConstant           = "git"
)

// CloneOptions describes a single-branch clone of the synchronized repository.
type CloneOptions struct {
	RemoteURL       string
	TargetDirectory string
	BranchName      string
	AccessToken     string
}

// CloneRepository performs a single-branch clone into the target directory.
//
// HTTPS remotes authenticate with the access token when one is provided;
// SSH remotes rely on ambient agent configuration.
func CloneRepository(executionContext context.Context, options CloneOptions) error {
	if len(strings.TrimSpace(options.RemoteURL)) == 0 {
		return errors.New(cloneURLRequiredMessageConstant)
	}
	if len(strings.TrimSpace(options.TargetDirectory)) == 0 {
		return errors.New(cloneTargetRequiredMessageConstant)
	}

	cloneOptions := &gogit.CloneOptions{
		URL:          options.RemoteURL,
		SingleBranch: true,
	}
	if len(strings.TrimSpace(options.BranchName)) > 0 {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(options.BranchName)
	}
	if len(options.AccessToken) > 0 && strings.HasPrefix(options.RemoteURL, httpsProtocolPrefixConstant) {
		cloneOptions.Auth = &transporthttp.BasicAuth{Username: tokenAuthUsernameConstant, Password: options.AccessToken}
	}

	if _, cloneError := gogit.PlainCloneContext(executionContext, options.TargetDirectory, false, cloneOptions); cloneError != nil {
		return fmt.Errorf(cloneErrorTemplateConstant, options.RemoteURL, cloneError)
	}
	return nil
}

// HeadCommitHash reports the commit hash the repository HEAD currently points at.
func HeadCommitHash(repositoryPath string) (string, error) {
	repository, openError := gogit.PlainOpen(repositoryPath)
	if openError != nil {
		return "", fmt.Errorf(headResolutionErrorTemplateConstant, repositoryPath, openError)
	}

	headReference, headError := repository.Head()
	if headError != nil {
		return "", fmt.Errorf(headResolutionErrorTemplateConstant, repositoryPath, headError)
	}
	return headReference.Hash().String(), nil
}
