// Package config reads the BORROWLEDGER_ environment (optionally from a .env file) and builds
// what the CLI runs on: the journal engine, the identity verifier and the logger.
//
// The postgres factories keep the pool tuning of a long-running client in one place; the
// sqlite journal is the default and needs no server.
package config
