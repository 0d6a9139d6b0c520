// Package deps checks that the external binaries postroll shells out to are
// installed and resolvable.
package deps
