// Package syncjob implements the scheduled CSV sync pipeline.
//
// A JobDefinition loaded from YAML names the workspace, the external script,
// and the commit policy; Service executes one run end to end: ensure the
// workspace, provision Python, execute the script with the credential
// injected, detect CSV artifacts, and commit and push exactly those
// artifacts under the fixed bot identity.
package syncjob
