package speech

import "strings"

// SelectVoice picks the announcement voice: an English voice whose name
// contains "Female", else any English voice, else the device default.
func SelectVoice(voices []Voice) Voice {
	for _, v := range voices {
		if isEnglish(v) && strings.Contains(v.Name, "Female") {
			return v
		}
	}
	for _, v := range voices {
		if isEnglish(v) {
			return v
		}
	}
	return Voice{}
}

func isEnglish(v Voice) bool {
	return strings.HasPrefix(v.Lang, "en")
}
