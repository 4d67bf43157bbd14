package model

// Profile 是站点主人的静态资料，启动时加载一次，运行期间只读。
// 它既用于生成本地模板回复，也会被渲染成发给模型的 system 提示词。
type Profile struct {
	Name           string          `mapstructure:"name"`
	Title          string          `mapstructure:"title"`
	RollNumber     string          `mapstructure:"roll_number"`
	ResumeFile     string          `mapstructure:"resume_file"`
	Personal       PersonalInfo    `mapstructure:"personal"`
	Education      Education       `mapstructure:"education"`
	Experience     []Experience    `mapstructure:"experience"`
	Skills         []SkillGroup    `mapstructure:"skills"`
	Certifications []string        `mapstructure:"certifications"`
	Achievements   []string        `mapstructure:"achievements"`
	Projects       []Project       `mapstructure:"projects"`
	Services       []Service       `mapstructure:"services"`
	Pricing        []PricingPlan   `mapstructure:"pricing"`
	Instructions   []string        `mapstructure:"instructions"`
	Assistant      AssistantScript `mapstructure:"assistant"`
}

type PersonalInfo struct {
	Email     string `mapstructure:"email"`
	Location  string `mapstructure:"location"`
	LinkedIn  string `mapstructure:"linkedin"`
	GitHub    string `mapstructure:"github"`
	Instagram string `mapstructure:"instagram"`
	Portfolio string `mapstructure:"portfolio"`
	Research  string `mapstructure:"research"`
}

type Education struct {
	Degree     string   `mapstructure:"degree"`
	University string   `mapstructure:"university"`
	Years      string   `mapstructure:"years"`
	Courses    []string `mapstructure:"courses"`
}

type Experience struct {
	Title            string   `mapstructure:"title"`
	Company          string   `mapstructure:"company"`
	Duration         string   `mapstructure:"duration"`
	Responsibilities []string `mapstructure:"responsibilities"`
}

// SkillGroup 是一组技能及其熟练度（百分比）。
type SkillGroup struct {
	Category string  `mapstructure:"category"`
	Items    []Skill `mapstructure:"items"`
}

type Skill struct {
	Name    string `mapstructure:"name"`
	Percent int    `mapstructure:"percent"`
}

type Project struct {
	ID          string   `mapstructure:"id"`
	Name        string   `mapstructure:"name"`
	Tech        []string `mapstructure:"tech"`
	Description string   `mapstructure:"description"`
}

type Service struct {
	Name        string `mapstructure:"name"`
	Price       string `mapstructure:"price"`
	Description string `mapstructure:"description"`
}

type PricingPlan struct {
	Name    string `mapstructure:"name"`
	Monthly string `mapstructure:"monthly"`
	Project string `mapstructure:"project"`
	Note    string `mapstructure:"note"`
}

// AssistantScript 保存助手的固定话术。
type AssistantScript struct {
	Greeting string `mapstructure:"greeting"`
	// Apology 是远程调用失败时返回给访客的唯一文案
	Apology string `mapstructure:"apology"`
	// Templates 按意图名（education/experience/rollnumber/resume）保存候选回复
	Templates    map[string][]string `mapstructure:"templates"`
	QuickActions []QuickAction       `mapstructure:"quick_actions"`
	Suggestions  []string            `mapstructure:"suggestions"`
	SharedFiles  []SharedFile        `mapstructure:"shared_files"`
}

// QuickAction 是聊天面板上的快捷按钮，点击后等同于访客输入了 Message。
type QuickAction struct {
	Label   string `mapstructure:"label" json:"label"`
	Message string `mapstructure:"message" json:"message"`
}

// SharedFile 描述可以在聊天中分享的文件。ObjectKey 为空表示只有文字说明。
type SharedFile struct {
	Kind      string `mapstructure:"kind"`
	Message   string `mapstructure:"message"`
	ObjectKey string `mapstructure:"object_key"`
}

// TemplatesFor 返回某个意图的候选模板。
func (p *Profile) TemplatesFor(intent Intent) []string {
	return p.Assistant.Templates[string(intent)]
}

// SharedFileByKind 按类型查找可分享的文件。
func (p *Profile) SharedFileByKind(kind string) (SharedFile, bool) {
	for _, f := range p.Assistant.SharedFiles {
		if f.Kind == kind {
			return f, true
		}
	}
	return SharedFile{}, false
}
