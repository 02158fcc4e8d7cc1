package iflytek

const (
	statusFirstFrame    = 0
	statusContinueFrame = 1
	statusLastFrame     = 2
)

type frame struct {
	Common   *commonArgs   `json:"common,omitempty"`
	Business *businessArgs `json:"business,omitempty"`
	Data     frameData     `json:"data"`
}

type commonArgs struct {
	AppID string `json:"app_id"`
}

type businessArgs struct {
	Domain   string `json:"domain"`
	Language string `json:"language"`
	Accent   string `json:"accent,omitempty"`
	VADEOS   int    `json:"vad_eos"`
}

type frameData struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Audio    string `json:"audio"`
	Encoding string `json:"encoding"`
}

type resultMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	SID     string `json:"sid"`
	Data    *struct {
		Status int `json:"status"`
		Result struct {
			WS []struct {
				CW []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"result"`
	} `json:"data"`
}

func (m *resultMessage) words() string {
	if m.Data == nil {
		return ""
	}
	var s string
	for _, ws := range m.Data.Result.WS {
		if len(ws.CW) > 0 {
			s += ws.CW[0].W
		}
	}
	return s
}

func (m *resultMessage) final() bool {
	return m.Data != nil && m.Data.Status == statusLastFrame
}
