// Package pythonenv provisions the Python runtime the sync script depends on.
package pythonenv
