package normalize

// Derivation tables. The normalizer is a pure table lookup so the full
// input → requirement mapping stays auditable in one place.

// platformRequirements maps a platform value to its fixed requirement set.
var platformRequirements = map[string][]string{
	"web": {
		"Responsive layout across desktop, tablet, and mobile viewports",
		"SEO-friendly routing and metadata",
	},
	"mobile": {
		"Touch-first interaction targets",
		"Offline-tolerant data handling",
	},
	"desktop": {
		"Keyboard-driven navigation and shortcuts",
		"Native window and menu integration",
	},
}

// complexityRequirements maps the complexity answer to its requirement set.
var complexityRequirements = map[string][]string{
	"simple": {
		"Single-page flow with minimal navigation",
		"Local or embedded data storage",
	},
	"medium": {
		"Multi-view navigation with shared state",
		"Persistent backend storage with CRUD operations",
		"User authentication",
	},
	"complex": {
		"Role-based access control",
		"Background jobs or scheduled processing",
		"Third-party service integrations",
		"Horizontal scalability considerations",
	},
}

// experienceRequirements maps the experience answer to its requirement set.
var experienceRequirements = map[string][]string{
	"beginner": {
		"Well-commented code with step-by-step setup instructions",
		"Minimal tooling and zero-config defaults",
	},
	"intermediate": {
		"Conventional project structure with linting configured",
		"Unit tests for core business logic",
	},
	"advanced": {
		"Typed interfaces at module boundaries",
		"CI-ready test and build scripts",
		"Performance budgets for critical paths",
	},
}

// designStyleRequirements maps the design style value to its UI requirement set.
var designStyleRequirements = map[string][]string{
	"minimal": {
		"Generous whitespace with a restrained palette",
		"Typography-led hierarchy",
	},
	"modern": {
		"Card-based layout with subtle shadows",
		"Micro-interactions on primary actions",
	},
	"playful": {
		"Vibrant accent colors and rounded shapes",
		"Animated transitions between states",
	},
	"professional": {
		"Dense information layout with clear grouping",
		"Conservative palette suitable for enterprise use",
	},
	"bold": {
		"High-contrast hero sections",
		"Oversized display typography",
	},
}

// mobileUIRequirements applies when the platform set includes mobile.
var mobileUIRequirements = []string{
	"Bottom-sheet and thumb-reachable primary actions",
	"Safe-area aware layout",
}

// baselineUIRequirements always applies.
var baselineUIRequirements = []string{
	"Accessibility: semantic markup, ARIA labels, keyboard navigation",
	"Cross-browser compatibility",
	"Loading and error states for every async view",
	"Consistent design system across screens",
}

// webOnlyConstraints applies when web is the single target platform.
var webOnlyConstraints = []string{
	"No native platform APIs; browser capabilities only",
	"Progressive enhancement for older browsers",
}

// experienceConstraints maps the experience answer to its constraint set.
var experienceConstraints = map[string][]string{
	"beginner": {
		"Prefer widely-documented libraries over niche ones",
	},
	"intermediate": {
		"Keep third-party dependencies to an auditable set",
	},
	"advanced": {
		"Document architectural decisions alongside the code",
	},
}

// complexityConstraints maps the complexity answer to its constraint set.
var complexityConstraints = map[string][]string{
	"simple": {
		"Ship a single deployable artifact",
	},
	"medium": {
		"Separate configuration from code",
	},
	"complex": {
		"Design service boundaries before implementation",
	},
}

// baselineConstraints always applies.
var baselineConstraints = []string{
	"Follow current web standards",
	"Apply security best practices for user data",
	"Keep initial load performance acceptable on mid-range hardware",
}

// webFallbackStack is appended to per-tool default stacks for web targets
// when not already present.
var webFallbackStack = []string{"React", "Node.js"}
