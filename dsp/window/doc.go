// Package window generates tapers for spectral estimation and for edge
// treatment of finite analysis blocks.
package window
