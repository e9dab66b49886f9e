package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every package that serves routes.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Mount builds a router carrying the routes of every handler. httprouter
// panics on conflicting routes, so a clash surfaces at startup.
func Mount(handlers ...Handler) *httprouter.Router {
	router := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
	return router
}
