package object

import "errors"

// errNotCallable is returned by Apply/Construct on object shapes that do not
// implement [[Call]]/[[Construct]] (spec.md §3.2 "apply()/construct() on a
// non-function object"). The VM wraps this into a TypeError at the call
// site; this package stays free of the errors package's category taxonomy.
var errNotCallable = errors.New("object: not callable")
