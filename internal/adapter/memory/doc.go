// Package memory implements the record store in process memory for single-instance
// development (STORE=memory) and tests. Data is lost on restart.
package memory
