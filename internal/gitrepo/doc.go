// Package gitrepo manages the repository workspace the sync pipeline operates on.
//
// RepositoryManager drives the git CLI through execshell for status, staging,
// commit, and push operations; cloning and commit inspection go through
// go-git. ParseRemoteURL converts remote strings into structured identifiers.
package gitrepo
