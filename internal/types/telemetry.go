package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricTickDuration    = "TickDuration"
	MetricTickSkipped     = "TickSkipped"
	MetricRefreshSuccess  = "RefreshSuccess"
	MetricRefreshFailure  = "RefreshFailure"
	MetricActiveFlights   = "ActiveFlights"
	MetricActiveAlerts    = "ActiveAlerts"
	MetricAlertsPublished = "AlertsPublished"
	MetricAPILatency      = "APILatency"

	// Dimension Keys
	DimAirport  = "Airport"
	DimSource   = "Source"
	DimScenario = "Scenario"
	DimEndpoint = "Endpoint"

	// Metric Namespace
	MetricNamespace = "AirportTwin"
)

// Broker entity types and attribute names shared by the adapter and history queries.
const (
	EntityTypeFlight  = "Flight"
	EntityTypeRunway  = "RunwayStatus"
	EntityTypeWeather = "WeatherCondition"
)
