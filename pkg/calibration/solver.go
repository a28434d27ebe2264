package calibration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RequiredPoints is the number of calibration samples the solver needs.
const RequiredPoints = 4

// maxReprojectionError is the reprojection distance (in the screen
// coordinate unit) at which accuracy bottoms out at zero.
const maxReprojectionError = 100.0

// Sentinel errors for invalid solver input.
var (
	// ErrInvalidPoints is returned when the point count is not 4.
	ErrInvalidPoints = errors.New("calibration: exactly 4 calibration points required")

	// ErrDegeneratePoints is returned when the configuration admits no
	// homography (e.g. collinear or repeated points).
	ErrDegeneratePoints = errors.New("calibration: degenerate point configuration")
)

// Solver computes calibration transforms from screen/gaze sample pairs.
type Solver struct{}

// NewSolver creates a calibration solver.
func NewSolver() *Solver {
	return &Solver{}
}

// Solve computes the homography mapping gaze points onto screen points and
// scores it by reprojection accuracy in [0, 1].
func (s *Solver) Solve(screenPoints, gazePoints []Point) (Matrix, float64, error) {
	if len(screenPoints) != RequiredPoints || len(gazePoints) != RequiredPoints {
		return Matrix{}, 0, ErrInvalidPoints
	}

	// Direct linear transform with h33 fixed to 1: two equations per
	// correspondence give an 8x8 system in the remaining entries.
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < RequiredPoints; i++ {
		u, v := gazePoints[i].X, gazePoints[i].Y
		x, y := screenPoints[i].X, screenPoints[i].Y

		a.SetRow(2*i, []float64{u, v, 1, 0, 0, 0, -x * u, -x * v})
		b.SetVec(2*i, x)

		a.SetRow(2*i+1, []float64{0, 0, 0, u, v, 1, -y * u, -y * v})
		b.SetVec(2*i+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Matrix{}, 0, fmt.Errorf("%w: %v", ErrDegeneratePoints, err)
	}

	m := Matrix{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}

	for i := range m {
		for j := range m[i] {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return Matrix{}, 0, ErrDegeneratePoints
			}
		}
	}

	return m, s.accuracy(screenPoints, gazePoints, m), nil
}

// accuracy scores a transform by mean reprojection error, normalized so
// that an error of maxReprojectionError or more scores zero.
func (s *Solver) accuracy(screenPoints, gazePoints []Point, m Matrix) float64 {
	var mse float64
	for i := range gazePoints {
		tx, ty := m.Apply(gazePoints[i].X, gazePoints[i].Y)
		dx := tx - screenPoints[i].X
		dy := ty - screenPoints[i].Y
		mse += dx*dx + dy*dy
	}
	mse /= float64(len(gazePoints))

	return math.Max(0, 1-math.Sqrt(mse)/maxReprojectionError)
}
