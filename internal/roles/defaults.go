package roles

// Role name constants for the built-in lexicon.
const (
	RoleBackend   = "Backend Engineer"
	RoleFrontend  = "Frontend Engineer"
	RoleFullStack = "Full-Stack Engineer"
	RoleMobile    = "Mobile Engineer"
	RoleDevOps    = "DevOps / SRE"
	RoleData      = "Data Engineer"
	RoleML        = "Machine Learning Engineer"
	RoleQA        = "QA Engineer"
)

// DefaultLexicon builds the built-in role lexicon. An empty fallback selects
// the first declared role (Backend Engineer).
func DefaultLexicon(fallback string) (*Lexicon, error) {
	return NewLexicon(defaultRoles, defaultBoosts, fallback)
}

var defaultRoles = []RoleDefinition{
	{
		Name: RoleBackend,
		Features: []FeatureRule{
			{Pattern: `apis?`, Weight: 1.2},
			{Pattern: `rest(ful)?`, Weight: 1.0},
			{Pattern: `grpc|graphql`, Weight: 1.2},
			{Pattern: `backend|back-end|server-side`, Weight: 1.5},
			{Pattern: `databases?|sql`, Weight: 1.0},
			{Pattern: `microservices?`, Weight: 1.2},
			{Pattern: `auth(entication|orization)?`, Weight: 0.8},
			{Pattern: `queues?|message broker`, Weight: 0.8},
			{Pattern: `endpoints?`, Weight: 0.8},
			{Pattern: `services?`, Weight: 0.6},
		},
		Stages: []string{
			"Requirements & API design",
			"Data modeling",
			"Service implementation",
			"Testing & hardening",
			"Deployment & observability",
		},
		Scope: "Server-side services, APIs, data access and integration logic.",
	},
	{
		Name: RoleFrontend,
		Features: []FeatureRule{
			{Pattern: `ui|ux`, Weight: 1.0},
			{Pattern: `front-?end|client-side`, Weight: 1.5},
			{Pattern: `react|vue|angular|svelte`, Weight: 1.2},
			{Pattern: `css|sass|scss|tailwind`, Weight: 1.0},
			{Pattern: `components?`, Weight: 0.8},
			{Pattern: `browsers?`, Weight: 0.8},
			{Pattern: `accessibility|a11y`, Weight: 1.0},
			{Pattern: `responsive`, Weight: 0.8},
			{Pattern: `web ?app|website`, Weight: 0.8},
		},
		Stages: []string{
			"UX alignment",
			"Component design",
			"Implementation",
			"Styling & accessibility",
			"Cross-browser testing",
		},
		Scope: "User interfaces, client-side state, styling and accessibility.",
	},
	{
		Name: RoleFullStack,
		Features: []FeatureRule{
			{Pattern: `full[ -]?stack`, Weight: 1.8},
			{Pattern: `end[ -]to[ -]end`, Weight: 1.0},
			{Pattern: `prototype|mvp`, Weight: 1.0},
			{Pattern: `side project|solo`, Weight: 0.8},
		},
		Stages: []string{
			"Product scoping",
			"Data & API design",
			"Full-stack implementation",
			"Integration testing",
			"Launch",
		},
		Scope: "Whole features across client, server and storage.",
	},
	{
		Name: RoleMobile,
		Features: []FeatureRule{
			{Pattern: `mobile`, Weight: 1.5},
			{Pattern: `ios|android`, Weight: 1.3},
			{Pattern: `app store|play store`, Weight: 1.0},
			{Pattern: `flutter|react native|swiftui`, Weight: 1.2},
			{Pattern: `push notifications?`, Weight: 0.8},
			{Pattern: `offline`, Weight: 0.6},
		},
		Stages: []string{
			"Platform targeting",
			"Screen & navigation design",
			"Implementation",
			"Device testing",
			"Store release",
		},
		Scope: "Native and cross-platform mobile applications.",
	},
	{
		Name: RoleDevOps,
		Features: []FeatureRule{
			{Pattern: `deploy(ment)?s?`, Weight: 1.0},
			{Pattern: `kubernetes|k8s`, Weight: 1.3},
			{Pattern: `terraform|ansible|pulumi`, Weight: 1.2},
			{Pattern: `docker|containers?`, Weight: 1.0},
			{Pattern: `ci/?cd`, Weight: 1.2},
			{Pattern: `infra(structure)?`, Weight: 1.2},
			{Pattern: `monitoring|observability|alerting`, Weight: 1.0},
			{Pattern: `reliability|sre|uptime|on[ -]call`, Weight: 1.2},
			{Pattern: `(auto)?scaling`, Weight: 0.8},
		},
		Stages: []string{
			"Environment audit",
			"Infrastructure as code",
			"Pipeline automation",
			"Observability setup",
			"Reliability hardening",
		},
		Scope: "Infrastructure, delivery pipelines, monitoring and reliability.",
	},
	{
		Name: RoleData,
		Features: []FeatureRule{
			{Pattern: `etl|elt`, Weight: 1.4},
			{Pattern: `(data )?warehouse|lakehouse|data lake`, Weight: 1.2},
			{Pattern: `pipelines?`, Weight: 1.0},
			{Pattern: `analytics|reporting|dashboards?`, Weight: 0.8},
			{Pattern: `ingest(ion)?`, Weight: 0.8},
			{Pattern: `spark|airflow|dbt|snowflake|bigquery`, Weight: 1.2},
		},
		Stages: []string{
			"Source mapping",
			"Schema design",
			"Pipeline implementation",
			"Data quality checks",
			"Scheduling & monitoring",
		},
		Scope: "Data pipelines, warehousing, transformation and analytics plumbing.",
	},
	{
		Name: RoleML,
		Features: []FeatureRule{
			{Pattern: `machine learning|ml`, Weight: 1.5},
			{Pattern: `model training|inference|fine[ -]?tun(e|ing)`, Weight: 1.0},
			{Pattern: `llms?|genai|generative ai`, Weight: 1.3},
			{Pattern: `pytorch|tensorflow`, Weight: 1.2},
			{Pattern: `embeddings?|rag|vector search`, Weight: 1.0},
		},
		Stages: []string{
			"Problem framing",
			"Data preparation",
			"Model selection & training",
			"Evaluation",
			"Serving & monitoring",
		},
		Scope: "Model training, evaluation and serving, including LLM applications.",
	},
	{
		Name: RoleQA,
		Features: []FeatureRule{
			{Pattern: `qa|quality assurance`, Weight: 1.5},
			{Pattern: `test automation|automated tests?`, Weight: 1.3},
			{Pattern: `tests?|testing`, Weight: 0.8},
			{Pattern: `selenium|cypress|playwright`, Weight: 1.2},
			{Pattern: `regression`, Weight: 0.8},
			{Pattern: `coverage`, Weight: 0.6},
		},
		Stages: []string{
			"Test planning",
			"Framework setup",
			"Case automation",
			"CI integration",
			"Reporting",
		},
		Scope: "Test strategy, automation frameworks and regression safety.",
	},
}

var defaultBoosts = []BoostRule{
	{Token: "react", Roles: []string{RoleFrontend, RoleFullStack}, Weight: 0.5},
	{Token: "vue", Roles: []string{RoleFrontend}, Weight: 0.5},
	{Token: "angular", Roles: []string{RoleFrontend}, Weight: 0.5},
	{Token: "svelte", Roles: []string{RoleFrontend}, Weight: 0.5},
	{Token: "css", Roles: []string{RoleFrontend}, Weight: 0.4},
	{Token: "tailwind", Roles: []string{RoleFrontend}, Weight: 0.4},
	{Token: "next.js", Roles: []string{RoleFrontend, RoleFullStack}, Weight: 0.5},
	{Token: "typescript", Roles: []string{RoleFrontend, RoleFullStack}, Weight: 0.4},
	{Token: "javascript", Roles: []string{RoleFrontend, RoleFullStack}, Weight: 0.4},
	{Token: "node", Roles: []string{RoleBackend, RoleFullStack}, Weight: 0.5},
	{Token: "node.js", Roles: []string{RoleBackend, RoleFullStack}, Weight: 0.5},
	{Token: "express", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "go", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "golang", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "java", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "rust", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "c++", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: ".net", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "python", Roles: []string{RoleBackend, RoleData, RoleML}, Weight: 0.4},
	{Token: "django", Roles: []string{RoleBackend}, Weight: 0.6},
	{Token: "rails", Roles: []string{RoleBackend}, Weight: 0.6},
	{Token: "spring", Roles: []string{RoleBackend}, Weight: 0.6},
	{Token: "fastapi", Roles: []string{RoleBackend}, Weight: 0.6},
	{Token: "postgres", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "postgresql", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "mysql", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "mongodb", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "redis", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "grpc", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "graphql", Roles: []string{RoleBackend}, Weight: 0.5},
	{Token: "kafka", Roles: []string{RoleBackend, RoleData}, Weight: 0.4},
	{Token: "rabbitmq", Roles: []string{RoleBackend}, Weight: 0.4},
	{Token: "docker", Roles: []string{RoleDevOps}, Weight: 0.6},
	{Token: "kubernetes", Roles: []string{RoleDevOps}, Weight: 0.7},
	{Token: "k8s", Roles: []string{RoleDevOps}, Weight: 0.7},
	{Token: "helm", Roles: []string{RoleDevOps}, Weight: 0.6},
	{Token: "terraform", Roles: []string{RoleDevOps}, Weight: 0.7},
	{Token: "ansible", Roles: []string{RoleDevOps}, Weight: 0.7},
	{Token: "pulumi", Roles: []string{RoleDevOps}, Weight: 0.7},
	{Token: "aws", Roles: []string{RoleDevOps}, Weight: 0.5},
	{Token: "gcp", Roles: []string{RoleDevOps}, Weight: 0.5},
	{Token: "azure", Roles: []string{RoleDevOps}, Weight: 0.5},
	{Token: "prometheus", Roles: []string{RoleDevOps}, Weight: 0.5},
	{Token: "grafana", Roles: []string{RoleDevOps}, Weight: 0.5},
	{Token: "spark", Roles: []string{RoleData}, Weight: 0.7},
	{Token: "airflow", Roles: []string{RoleData}, Weight: 0.7},
	{Token: "dbt", Roles: []string{RoleData}, Weight: 0.7},
	{Token: "snowflake", Roles: []string{RoleData}, Weight: 0.7},
	{Token: "bigquery", Roles: []string{RoleData}, Weight: 0.7},
	{Token: "flink", Roles: []string{RoleData}, Weight: 0.7},
	{Token: "hadoop", Roles: []string{RoleData}, Weight: 0.6},
	{Token: "pytorch", Roles: []string{RoleML}, Weight: 0.7},
	{Token: "tensorflow", Roles: []string{RoleML}, Weight: 0.7},
	{Token: "scikit-learn", Roles: []string{RoleML}, Weight: 0.6},
	{Token: "huggingface", Roles: []string{RoleML}, Weight: 0.6},
	{Token: "swift", Roles: []string{RoleMobile}, Weight: 0.7},
	{Token: "swiftui", Roles: []string{RoleMobile}, Weight: 0.7},
	{Token: "kotlin", Roles: []string{RoleMobile}, Weight: 0.7},
	{Token: "flutter", Roles: []string{RoleMobile}, Weight: 0.7},
	{Token: "dart", Roles: []string{RoleMobile}, Weight: 0.6},
	{Token: "selenium", Roles: []string{RoleQA}, Weight: 0.6},
	{Token: "cypress", Roles: []string{RoleQA}, Weight: 0.6},
	{Token: "playwright", Roles: []string{RoleQA}, Weight: 0.6},
	{Token: "junit", Roles: []string{RoleQA}, Weight: 0.5},
	{Token: "pytest", Roles: []string{RoleQA}, Weight: 0.5},
}
