package providers

import (
	"net/http"

	"gsd/internal/structures"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	Put(url string, handler http.Handler)
	Delete(url string, handler http.Handler)
	GetRoutes() []structures.Route
}

type RouterProvider struct {
	routes []structures.Route
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(http.MethodPost, url, handler)
}

func (rp *RouterProvider) Put(url string, handler http.Handler) {
	rp.add(http.MethodPut, url, handler)
}

func (rp *RouterProvider) Delete(url string, handler http.Handler) {
	rp.add(http.MethodDelete, url, handler)
}

func (rp *RouterProvider) add(method, url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Method:  method,
		Url:     url,
		Handler: handler,
	})
}

// GetRoutes merges registrations sharing a path into a single entry that
// dispatches on the request method, so the mux sees each path once.
func (rp *RouterProvider) GetRoutes() []structures.Route {
	byUrl := make(map[string]map[string]http.Handler)
	order := make([]string, 0, len(rp.routes))
	for _, route := range rp.routes {
		if _, ok := byUrl[route.Url]; !ok {
			byUrl[route.Url] = make(map[string]http.Handler)
			order = append(order, route.Url)
		}
		byUrl[route.Url][route.Method] = route.Handler
	}
	merged := make([]structures.Route, 0, len(order))
	for _, url := range order {
		merged = append(merged, structures.Route{
			Url:     url,
			Handler: methodHandler(byUrl[url]),
		})
	}
	return merged
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{}
}

func methodHandler(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.Method]
		if !ok {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
