// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

// AverageFloat32 returns the arithmetic mean of a slice of float32 samples,
// zero for an empty slice. Used by the VAD RMS computation to normalize
// sample energy before comparing against a threshold.
func AverageFloat32(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float32
	for _, s := range samples {
		sum += s
	}
	return sum / float32(len(samples))
}
