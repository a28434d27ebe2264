// Package calibration solves the 4-point gaze calibration transform.
// The solver maps raw gaze coordinates onto screen coordinates with a 3x3
// homography, scored by reprojection accuracy.
package calibration

// Point is a 2D coordinate in normalized screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Matrix is a 3x3 homography transform. It JSON-serializes as nested
// arrays, the format the calibration store expects.
type Matrix [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Apply transforms a point through the homography, including the
// perspective divide. A zero w leaves the point untouched.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	tx := m[0][0]*x + m[0][1]*y + m[0][2]
	ty := m[1][0]*x + m[1][1]*y + m[1][2]
	w := m[2][0]*x + m[2][1]*y + m[2][2]

	if w == 0 {
		return x, y
	}
	return tx / w, ty / w
}
