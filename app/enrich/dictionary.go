package enrich

type TechCategory string

const (
	CategoryLanguage       TechCategory = "language"
	CategoryFramework      TechCategory = "framework"
	CategoryRuntime        TechCategory = "runtime"
	CategoryTool           TechCategory = "tool"
	CategoryPackageManager TechCategory = "package_manager"
	CategoryPlatform       TechCategory = "platform"
)

type Tech struct {
	Key      string
	Label    string
	Aliases  []string
	Category TechCategory
}

// Technologies is matched in order; detected tags keep this order.
var Technologies = []Tech{
	{Key: "java", Label: "Java", Aliases: []string{"java", "jdk", "jre", "openjdk"}, Category: CategoryLanguage},
	{Key: "spring", Label: "Spring", Aliases: []string{"spring", "spring framework", "springframework"}, Category: CategoryFramework},
	{Key: "spring_boot", Label: "Spring Boot", Aliases: []string{"spring boot", "spring-boot", "springboot"}, Category: CategoryFramework},
	{Key: "node_js", Label: "Node.js", Aliases: []string{"node.js", "nodejs", "node js"}, Category: CategoryRuntime},
	{Key: "npm", Label: "npm", Aliases: []string{"npm", "npmjs", "npm registry"}, Category: CategoryPackageManager},
	{Key: "react", Label: "React", Aliases: []string{"react", "reactjs", "react.js"}, Category: CategoryFramework},
	{Key: "react_native", Label: "React Native", Aliases: []string{"react native", "react-native", "reactnative"}, Category: CategoryFramework},
	{Key: "typescript", Label: "TypeScript", Aliases: []string{"typescript", "ts"}, Category: CategoryLanguage},
	{Key: "javascript", Label: "JavaScript", Aliases: []string{"javascript", "js", "ecmascript"}, Category: CategoryLanguage},
	{Key: "go", Label: "Go", Aliases: []string{"go", "golang"}, Category: CategoryLanguage},
	{Key: "python", Label: "Python", Aliases: []string{"python", "pypi", "pip"}, Category: CategoryLanguage},
	{Key: "postgresql", Label: "PostgreSQL", Aliases: []string{"postgresql", "postgres", "psql", "pg"}, Category: CategoryTool},
	{Key: "redis", Label: "Redis", Aliases: []string{"redis"}, Category: CategoryTool},
	{Key: "docker", Label: "Docker", Aliases: []string{"docker", "dockerfile", "docker-compose"}, Category: CategoryTool},
	{Key: "kubernetes", Label: "Kubernetes", Aliases: []string{"kubernetes", "k8s", "kubectl"}, Category: CategoryPlatform},
	{Key: "nginx", Label: "Nginx", Aliases: []string{"nginx"}, Category: CategoryTool},
	{Key: "apache", Label: "Apache", Aliases: []string{"apache", "httpd", "apache2"}, Category: CategoryTool},
	{Key: "maven", Label: "Maven", Aliases: []string{"maven", "mvn", "pom.xml"}, Category: CategoryTool},
	{Key: "gradle", Label: "Gradle", Aliases: []string{"gradle", "build.gradle"}, Category: CategoryTool},
	{Key: "webpack", Label: "Webpack", Aliases: []string{"webpack"}, Category: CategoryTool},
	{Key: "next_js", Label: "Next.js", Aliases: []string{"next.js", "nextjs", "next js"}, Category: CategoryFramework},
	{Key: "express", Label: "Express", Aliases: []string{"express", "expressjs", "express.js"}, Category: CategoryFramework},
	{Key: "nestjs", Label: "NestJS", Aliases: []string{"nestjs", "nest.js", "nest"}, Category: CategoryFramework},
	{Key: "android", Label: "Android", Aliases: []string{"android"}, Category: CategoryPlatform},
	{Key: "ios", Label: "iOS", Aliases: []string{"ios", "iphone", "ipad"}, Category: CategoryPlatform},
	{Key: "log4j", Label: "Log4j", Aliases: []string{"log4j", "log4j2", "log4shell"}, Category: CategoryTool},
	{Key: "jackson", Label: "Jackson", Aliases: []string{"jackson", "jackson-databind"}, Category: CategoryTool},
}

// Vendor ties a vendor name to product keywords that imply it.
type Vendor struct {
	Name     string
	Products []string
}

var Vendors = []Vendor{
	{Name: "Microsoft", Products: []string{"windows", "azure", "office", "exchange", "teams"}},
	{Name: "Google", Products: []string{"chrome", "android", "gmail", "gcp"}},
	{Name: "Apple", Products: []string{"macos", "ios", "safari", "iphone", "xcode"}},
	{Name: "Apache", Products: []string{"log4j", "struts", "tomcat", "httpd", "kafka"}},
	{Name: "Oracle", Products: []string{"java", "mysql", "weblogic", "virtualbox"}},
	{Name: "VMware", Products: []string{"vsphere", "esxi", "vcenter"}},
	{Name: "Cisco", Products: []string{"ios-xe", "asa", "firepower"}},
	{Name: "Fortinet", Products: []string{"fortigate", "fortios", "fortimanager"}},
	{Name: "Palo Alto", Products: []string{"pan-os", "cortex", "prisma"}},
}
