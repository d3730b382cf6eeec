// Package signal synthesizes deterministic test and injection signals:
// constant tones, damped multi-mode ring-downs and Gaussian noise.
package signal
