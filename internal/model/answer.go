package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// AnswerValue 用户答案的联合类型：单选是字符串，多选是字符串列表。
// 序列化时保持提交方原始形态回显。
type AnswerValue struct {
	Single   string
	Multiple []string
	IsList   bool
}

func SingleAnswer(id string) AnswerValue {
	return AnswerValue{Single: id}
}

func MultipleAnswer(ids ...string) AnswerValue {
	list := make([]string, 0, len(ids))
	list = append(list, ids...)
	return AnswerValue{Multiple: list, IsList: true}
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		a.Single = single
		a.Multiple = nil
		a.IsList = false
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err == nil {
		a.Single = ""
		a.Multiple = multiple
		a.IsList = true
		return nil
	}

	return errors.New("user_answer 必须是字符串或字符串列表")
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.IsList {
		if a.Multiple == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(a.Multiple)
	}
	return json.Marshal(a.Single)
}

// First 取第一个答案：列表取第一项，字符串去掉首尾空白
func (a AnswerValue) First() string {
	if a.IsList {
		if len(a.Multiple) == 0 {
			return ""
		}
		return a.Multiple[0]
	}
	return strings.TrimSpace(a.Single)
}

// OptionSet 规整为选项ID集合。兼容旧格式的逗号分隔字符串。
func (a AnswerValue) OptionSet() map[string]struct{} {
	set := make(map[string]struct{})
	if a.IsList {
		for _, id := range a.Multiple {
			set[id] = struct{}{}
		}
		return set
	}

	trimmed := strings.TrimSpace(a.Single)
	if trimmed == "" {
		return set
	}
	for _, part := range strings.Split(trimmed, ",") {
		if id := strings.TrimSpace(part); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
