// Package compiler keeps the registry of named compile capabilities a site can
// select with its Compiler key. Built-in compilers register themselves from
// init(); config validation resolves keys against this registry and the site
// registry instantiates the compiler with the process filesystem.
package compiler
