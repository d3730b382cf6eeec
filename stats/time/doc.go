// Package time computes time-domain statistics of sample blocks: single
// pass Welford moments and weighted moments for amplitude-weighted scatter.
package time
