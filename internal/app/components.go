package app

import (
	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/addons/synchronize"
	"github.com/omprussia/weblate-omp/internal/app/storage"
	"github.com/omprussia/weblate-omp/internal/lifecycle"
	"github.com/omprussia/weblate-omp/internal/memory"
	"github.com/omprussia/weblate-omp/internal/service"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/telemetry"
)

// Components groups the wired application components
type Components struct {
	Storage   storage.Factory
	Telemetry *telemetry.Telemetry
	Index     memory.Index

	Broker tasks.Broker
	Queue  tasks.Queue
	Pool   *tasks.Pool

	Registry    *addons.Registry
	Dispatcher  *addons.Dispatcher
	Installer   *addons.Installer
	Coordinator *synchronize.Coordinator

	Updater   *lifecycle.Updater
	Scheduler *lifecycle.Scheduler
	Service   service.AddonService
}
