package component

import "github.com/jakecoffman/cp"

// Body links an entity to its chipmunk body. Height carries the world Y
// coordinate, which the planar physics space does not model.
type Body struct {
	Body   *cp.Body
	Shape  *cp.Shape
	Height float64
}
