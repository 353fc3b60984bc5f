package config

import "github.com/tauraamui/framerecorder/pkg/configdef"

type defaultSettingKey uint

const (
	ROOTDIR    defaultSettingKey = 0x0
	VIDEO      defaultSettingKey = 0x1
	NUMFRAMES  defaultSettingKey = 0x2
	LISTENADDR defaultSettingKey = 0x3
	BACKEND    defaultSettingKey = 0x4
	MOCKFPS    defaultSettingKey = 0x5
)

var defaultSettings = map[defaultSettingKey]interface{}{
	ROOTDIR:    "/storage",
	VIDEO:      "/storage/video.mkv",
	NUMFRAMES:  10,
	LISTENADDR: ":8000",
	BACKEND:    "opencv",
	MOCKFPS:    25,
}

func Defaults() configdef.Values {
	return configdef.Values{
		RootDir:    defaultSettings[ROOTDIR].(string),
		Video:      defaultSettings[VIDEO].(string),
		NumFrames:  defaultSettings[NUMFRAMES].(int),
		ListenAddr: defaultSettings[LISTENADDR].(string),
		Backend:    defaultSettings[BACKEND].(string),
		MockFPS:    defaultSettings[MOCKFPS].(int),
	}
}
