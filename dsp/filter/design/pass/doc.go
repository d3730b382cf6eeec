// Package pass designs Butterworth low-pass, high-pass and band-pass
// cascades as biquad coefficient lists.
//
// Second-order sections use the RBJ cookbook forms via the bilinear
// transform. Odd orders end in a first-order section (B2 = A2 = 0).
package pass
