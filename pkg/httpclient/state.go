package httpclient

// state は1回のゲートウェイ呼び出しにおける状態。
type state int

const (
	// stateDispatch は元のリクエストを送信する状態（初期状態）。
	stateDispatch state = iota
	// stateRefresh はリフレッシュリクエストを送信する状態。
	stateRefresh
	// stateRetry は新しいトークンで元のリクエストを再送する状態。
	stateRetry
	// stateDone は結果が確定した終端状態。
	stateDone
	// stateFailTerminal はリフレッシュ失敗で確定した終端状態。
	stateFailTerminal
)

// String は状態名を返す。ログとトレースの属性に使用する。
func (s state) String() string {
	switch s {
	case stateDispatch:
		return "DISPATCH"
	case stateRefresh:
		return "REFRESH"
	case stateRetry:
		return "RETRY"
	case stateDone:
		return "DONE"
	case stateFailTerminal:
		return "FAIL_TERMINAL"
	default:
		return "UNKNOWN"
	}
}

// terminal は終端状態かどうかを返す。
func (s state) terminal() bool {
	return s == stateDone || s == stateFailTerminal
}

// outcome は各状態で発行したリクエストの結果の分類。
type outcome int

const (
	// outcomeOK は2xxの応答。
	outcomeOK outcome = iota
	// outcomeForbidden は403の応答。
	outcomeForbidden
	// outcomeFailed は403以外のエラー（通信エラーを含む）。
	outcomeFailed
	// outcomeToken はリフレッシュが新しいアクセストークンを返したこと。
	outcomeToken
	// outcomeNoData はリフレッシュが成功したがトークンを返さなかったこと。
	outcomeNoData
)

// transition は現在の状態と結果から次の状態を決める。
// 終端状態はどの結果でもそのまま留まる。
func transition(s state, o outcome) state {
	switch s {
	case stateDispatch:
		if o == outcomeForbidden {
			return stateRefresh
		}
		return stateDone
	case stateRefresh:
		if o == outcomeToken {
			return stateRetry
		}
		return stateFailTerminal
	case stateRetry:
		// 再送の結果は403であってもそのまま返す
		return stateDone
	default:
		return s
	}
}

// classify は通常リクエストの結果を分類する。
func classify(res *Result) outcome {
	switch {
	case res.Error == nil:
		return outcomeOK
	case res.Status == 403:
		return outcomeForbidden
	default:
		return outcomeFailed
	}
}
