package tasks

import "maps"

// DefaultQueue receives tasks without a route.
const DefaultQueue = "celery"

// DefaultRoutes maps slow tasks to dedicated queues.
func DefaultRoutes() map[string]string {
	return map[string]string{
		TaskAutoTranslate: "translate",
		TaskImportMemory:  "memory",
		TaskInstallAddon:  "addons",
	}
}

// Router resolves the queue of a task.
type Router struct {
	routes map[string]string
}

// NewRouter layers overrides on top of DefaultRoutes.
func NewRouter(overrides map[string]string) *Router {
	routes := DefaultRoutes()
	maps.Copy(routes, overrides)
	return &Router{routes: routes}
}

// QueueFor returns the queue for task.
func (r *Router) QueueFor(task string) string {
	if q, ok := r.routes[task]; ok {
		return q
	}
	return DefaultQueue
}
