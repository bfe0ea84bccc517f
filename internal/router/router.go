package router

import (
	"context"
	"time"

	"cajapos/internal/borrador"
	"cajapos/internal/config"
	"cajapos/internal/handler"
	"cajapos/internal/infra"
	"cajapos/internal/middleware"
	"cajapos/internal/repository"
	"cajapos/internal/service"
	"cajapos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the wired service layer. main needs Inventario for the retry
// worker pool; everything else is consumed by the handlers.
type Services struct {
	Guard       *infra.Guard
	Caja        service.CajaService
	Movimientos service.MovimientoService
	Arqueos     service.ArqueoService
	Ventas      service.VentaService
	Anulaciones service.AnulacionService
	Inventario  service.InventarioService
}

// NewServices wires all dependencies.
// Dependency graph: Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *infra.Metrics) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	reglas, err := cfg.Reglas()
	if err != nil {
		return nil, err
	}

	guard := service.NewPersistenceGuard(cfg.PersistenceTimeout(), cfg.BreakerFailures, cfg.BreakerOpen(), m)

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	arqueoRepo := repository.NewArqueoRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)

	// ── Infrastructure ───────────────────────────────────────────────────────
	borradores := borrador.NewRedisStore(rdb, cfg.BorradorTTL())
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	arqueoSvc := service.NewArqueoService(arqueoRepo, cajaRepo, ventaRepo, borradores, guard, m, service.ArqueoConfig{
		Loc:            loc,
		Reglas:         reglas,
		ModuloBorrador: cfg.BorradorModulo,
	})
	inventarioSvc := service.NewInventarioService(movimientoStockRepo, guard)

	return &Services{
		Guard:       guard,
		Caja:        service.NewCajaService(cajaRepo, guard),
		Movimientos: service.NewMovimientoService(cajaRepo, arqueoSvc, guard, loc),
		Arqueos:     arqueoSvc,
		Ventas:      service.NewVentaService(ventaRepo, inventarioSvc, arqueoSvc, guard, loc),
		Anulaciones: service.NewAnulacionService(ventaRepo, arqueoSvc, inventarioSvc, dispatcher, guard, m, loc),
		Inventario:  inventarioSvc,
	}, nil
}

// New returns a configured Gin engine. Background helpers stop with ctx.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *infra.Metrics, svcs *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	go limiter.Purge(5*time.Minute, ctx.Done())

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(svcs.Caja, svcs.Movimientos)
	arqueosH := handler.NewArqueosHandler(svcs.Arqueos)
	ventasH := handler.NewVentasHandler(svcs.Ventas, svcs.Anulaciones)
	inventarioH := handler.NewInventarioHandler(svcs.Inventario)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, svcs.Guard))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), limiter.Middleware())
	Register(v1, cajaH, arqueosH, ventasH, inventarioH)
	v1.GET("/inventario/creditos-pendientes",
		middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador),
		handler.CreditosPendientes(rdb))

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Register mounts the /v1 routes on g. Roles are declared per endpoint.
func Register(g *gin.RouterGroup, cajaH *handler.CajaHandler, arqueosH *handler.ArqueosHandler, ventasH *handler.VentasHandler, inventarioH *handler.InventarioHandler) {
	todos := middleware.RequireRole(middleware.RolCajero, middleware.RolSupervisor, middleware.RolAdministrador)
	supervision := middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador)

	turnos := g.Group("/turnos", todos)
	{
		turnos.POST("", cajaH.AbrirTurno)
		turnos.GET("/:id", cajaH.ObtenerTurno)
	}

	caja := g.Group("/caja", todos)
	{
		caja.POST("/movimientos", cajaH.RegistrarMovimiento)
		caja.GET("/movimientos", cajaH.ListarMovimientos)
		caja.DELETE("/movimientos/:id", cajaH.EliminarMovimiento)
	}

	arqueos := g.Group("/arqueos")
	{
		arqueos.POST("/previsualizar", todos, arqueosH.Previsualizar)
		arqueos.POST("", todos, arqueosH.Finalizar)
		arqueos.GET("", todos, arqueosH.Listar)
		arqueos.GET("/existe", todos, arqueosH.Existe)
		arqueos.DELETE("/:id", supervision, arqueosH.Eliminar)
	}

	ventas := g.Group("/ventas")
	{
		ventas.POST("", todos, ventasH.RegistrarVenta)
		ventas.GET("", todos, ventasH.ListarVentas)
		ventas.GET("/:id", todos, ventasH.ObtenerVenta)
		ventas.POST("/:id/anular", supervision, ventasH.AnularVenta)
	}

	inv := g.Group("/inventario", supervision)
	{
		inv.POST("/movimientos", inventarioH.RegistrarMovimiento)
		inv.GET("/movimientos", inventarioH.ListarMovimientos)
	}
}
