package model

// Intent 是访客消息被识别出的本地话题。
type Intent string

const (
	IntentEducation    Intent = "education"
	IntentExperience   Intent = "experience"
	IntentRollNumber   Intent = "rollnumber"
	IntentResume       Intent = "resume"
	IntentUnrecognized Intent = "unrecognized"
)

// IsLocal 表示该意图是否走本地模板回复。
func (i Intent) IsLocal() bool {
	return i != IntentUnrecognized && i != ""
}
