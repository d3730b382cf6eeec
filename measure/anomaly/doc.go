// Package anomaly compares an instantaneous-frequency trace with the
// frequency a reference model predicts.
//
// The largest fractional deviation in the trace is located among points whose
// amplitude is not negligible. Its significance is the deviation divided by
// the amplitude-weighted scatter of a trailing control region that lies
// strictly after the peak. When that region is too short the result is
// flagged LowConfidence with zero significance instead of failing.
//
// A deviation is Detected when it exceeds the caller's tolerance and its
// significance exceeds DiscoveryFloor.
package anomaly
