package objects

import (
	"strings"
	"sync"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// Kind はオブジェクトの種類
type Kind int

const (
	KindCreature Kind = iota
	KindDoor
	KindPlaceable
	KindItem
	KindTrigger
	KindWaypoint
	KindArea
	KindModule
)

var kindNames = map[Kind]string{
	KindCreature:  "creature",
	KindDoor:      "door",
	KindPlaceable: "placeable",
	KindItem:      "item",
	KindTrigger:   "trigger",
	KindWaypoint:  "waypoint",
	KindArea:      "area",
	KindModule:    "module",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ClassLevel はクラスとそのレベルの組
type ClassLevel struct {
	Class int32
	Level int32
}

// Speech はオブジェクトが喋った文字列の記録
type Speech struct {
	Text   string
	Volume int32
	// Dialog はワンライナー会話のダイアログ名（通常の発言では空）
	Dialog      string
	TokenTarget nwscript.ObjectID
}

// Object は汎用のゲームオブジェクト
// クリーチャー、ドア、プレースアブルなどの区別はKindのみで行い、
// スクリプト関数が必要とするプロパティをすべて持つ
type Object struct {
	mu   sync.RWMutex
	id   nwscript.ObjectID
	kind Kind
	tag  string
	name string
	pc   bool

	currentHP int32
	maxHP     int32
	minOneHP  bool

	locked       bool
	open         bool
	lastOpenedBy nwscript.ObjectID
	lastClosedBy nwscript.ObjectID
	lastUsedBy   nwscript.ObjectID

	gender  int32
	race    int32
	subRace int32
	classes []ClassLevel

	locals   map[string]nwscript.Variable
	messages []string
	spoken   []Speech
}

func newObject(id nwscript.ObjectID, kind Kind, tag string) *Object {
	return &Object{
		id:           id,
		kind:         kind,
		tag:          tag,
		lastOpenedBy: nwscript.ObjectInvalid,
		lastClosedBy: nwscript.ObjectInvalid,
		lastUsedBy:   nwscript.ObjectInvalid,
		locals:       make(map[string]nwscript.Variable),
	}
}

// ID はオブジェクトのハンドルを返す
func (o *Object) ID() nwscript.ObjectID { return o.id }

// Kind はオブジェクトの種類を返す
func (o *Object) Kind() Kind { return o.kind }

// Tag はオブジェクトのタグを返す
func (o *Object) Tag() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tag
}

// SetTag はタグを設定する
func (o *Object) SetTag(tag string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tag = tag
}

// Name は表示名を返す
func (o *Object) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.name
}

// SetName は表示名を設定する
func (o *Object) SetName(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.name = name
}

// IsPC はプレイヤーキャラクターかどうかを返す
func (o *Object) IsPC() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pc
}

// SetPC はプレイヤーキャラクターかどうかを設定する
func (o *Object) SetPC(pc bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pc = pc
}

// CurrentHitPoints は現在のHPを返す
func (o *Object) CurrentHitPoints() int32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.currentHP
}

// SetCurrentHitPoints は現在のHPを設定する
// MinOneHPが有効な場合、HPは1未満にならない
func (o *Object) SetCurrentHitPoints(hp int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.minOneHP && hp < 1 {
		hp = 1
	}
	o.currentHP = hp
}

// MaxHitPoints は最大HPを返す
func (o *Object) MaxHitPoints() int32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.maxHP
}

// SetMaxHitPoints は最大HPを設定する
// 現在のHPは新しい最大値を超えないように切り詰められる
func (o *Object) SetMaxHitPoints(hp int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hp < 1 {
		hp = 1
	}
	o.maxHP = hp
	if o.currentHP > hp {
		o.currentHP = hp
	}
}

// MinOneHP はHPが1未満にならないかどうかを返す
func (o *Object) MinOneHP() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.minOneHP
}

// SetMinOneHP はHPが1未満にならないかどうかを設定する
func (o *Object) SetMinOneHP(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.minOneHP = v
}

// Locked は施錠されているかどうかを返す
func (o *Object) Locked() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.locked
}

// SetLocked は施錠状態を設定する
func (o *Object) SetLocked(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locked = v
}

// IsOpen は開いているかどうかを返す
func (o *Object) IsOpen() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.open
}

// Open はbyによって開かれたことを記録する
func (o *Object) Open(by nwscript.ObjectID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = true
	o.lastOpenedBy = by
}

// Close はbyによって閉じられたことを記録する
func (o *Object) Close(by nwscript.ObjectID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.lastClosedBy = by
}

// Use はbyによって使用されたことを記録する
func (o *Object) Use(by nwscript.ObjectID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastUsedBy = by
}

// LastOpenedBy は最後に開いたオブジェクトを返す
func (o *Object) LastOpenedBy() nwscript.ObjectID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastOpenedBy
}

// LastClosedBy は最後に閉じたオブジェクトを返す
func (o *Object) LastClosedBy() nwscript.ObjectID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastClosedBy
}

// LastUsedBy は最後に使用したオブジェクトを返す
func (o *Object) LastUsedBy() nwscript.ObjectID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastUsedBy
}

// Gender は性別を返す
func (o *Object) Gender() int32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.gender
}

// Race は種族を返す
func (o *Object) Race() int32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.race
}

// SubRace はサブ種族を返す
func (o *Object) SubRace() int32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.subRace
}

// SetAppearance は性別、種族、サブ種族を設定する
func (o *Object) SetAppearance(gender, race, subRace int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gender = gender
	o.race = race
	o.subRace = subRace
}

// AddClass はクラスを追加する
// 既に持っているクラスの場合はレベルを加算する
func (o *Object) AddClass(class, level int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.classes {
		if o.classes[i].Class == class {
			o.classes[i].Level += level
			return
		}
	}
	o.classes = append(o.classes, ClassLevel{Class: class, Level: level})
}

// ClassByPosition はpos番目（0始まり）のクラスとレベルを返す
func (o *Object) ClassByPosition(pos int) (class, level int32, ok bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if pos < 0 || pos >= len(o.classes) {
		return 0, 0, false
	}
	return o.classes[pos].Class, o.classes[pos].Level, true
}

// Classes はクラスのコピーを返す
func (o *Object) Classes() []ClassLevel {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]ClassLevel(nil), o.classes...)
}

// LevelByClass は指定クラスのレベルを返す（持っていなければ0）
func (o *Object) LevelByClass(class int32) int32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, c := range o.classes {
		if c.Class == class {
			return c.Level
		}
	}
	return 0
}

// Local はローカル変数を返す
// 変数がない、または種類が違う場合はその種類のゼロ値を返す
func (o *Object) Local(name string, kind nwscript.Kind) nwscript.Variable {
	o.mu.RLock()
	v, ok := o.locals[localKey(name, kind)]
	o.mu.RUnlock()
	if !ok {
		return zeroOf(kind)
	}
	return v
}

// SetLocal はローカル変数を設定する
// 種類ごとに別の名前空間を持つ
func (o *Object) SetLocal(name string, v nwscript.Variable) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locals[localKey(name, v.Kind())] = v
}

// DeleteLocal はローカル変数を削除する
func (o *Object) DeleteLocal(name string, kind nwscript.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.locals, localKey(name, kind))
}

func localKey(name string, kind nwscript.Kind) string {
	return kind.String() + ":" + strings.ToLower(name)
}

func zeroOf(kind nwscript.Kind) nwscript.Variable {
	switch kind {
	case nwscript.KindInt:
		return nwscript.Zero(nwscript.TypeInt)
	case nwscript.KindFloat:
		return nwscript.Zero(nwscript.TypeFloat)
	case nwscript.KindString:
		return nwscript.Zero(nwscript.TypeString)
	case nwscript.KindObject:
		return nwscript.Zero(nwscript.TypeObject)
	case nwscript.KindVector:
		return nwscript.Zero(nwscript.TypeVector)
	}
	return nwscript.Unset()
}

// ReceiveMessage はプレイヤーへのメッセージを記録する
func (o *Object) ReceiveMessage(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, text)
}

// Messages は受け取ったメッセージのコピーを返す
func (o *Object) Messages() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.messages...)
}

// Speak は発言を記録する
func (o *Object) Speak(text string, volume int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spoken = append(o.spoken, Speech{Text: text, Volume: volume, TokenTarget: nwscript.ObjectInvalid})
}

// SpeakOneLiner はワンライナー会話の開始を記録する
func (o *Object) SpeakOneLiner(dialog string, tokenTarget nwscript.ObjectID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spoken = append(o.spoken, Speech{Dialog: dialog, TokenTarget: tokenTarget})
}

// Spoken は発言の記録のコピーを返す
func (o *Object) Spoken() []Speech {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]Speech(nil), o.spoken...)
}
