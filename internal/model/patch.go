package model

import "time"

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setTime(dst *time.Time, src *time.Time) {
	if src != nil {
		*dst = *src
	}
}

// OneOf 判断 v 是否属于允许的枚举值
func OneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
