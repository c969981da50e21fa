package models

// OrderStage - позиция заказа в фиксированной последовательности производства
type OrderStage string

const (
	StageCreated     OrderStage = "created"
	StagePlanning    OrderStage = "planning"
	StagePlanned     OrderStage = "planned"
	Stage24hCleaning OrderStage = "24h_cleaning"
	Stage12hCleaning OrderStage = "12h_cleaning"
	StageGrinding    OrderStage = "grinding"
	StageCompleted   OrderStage = "completed"
	StageOnHold      OrderStage = "on_hold" // Ручная остановка оператором, вне последовательности
)

// StageSequence - порядок этапов; on_hold в него не входит
var StageSequence = []OrderStage{
	StageCreated,
	StagePlanning,
	StagePlanned,
	Stage24hCleaning,
	Stage12hCleaning,
	StageGrinding,
	StageCompleted,
}

var stageIndex = func() map[OrderStage]int {
	index := make(map[OrderStage]int, len(StageSequence))
	for i, stage := range StageSequence {
		index[stage] = i
	}
	return index
}()

// Этапы с таймером (очистка и помол)
var timedStages = map[OrderStage]struct{}{
	Stage24hCleaning: {},
	Stage12hCleaning: {},
	StageGrinding:    {},
}

// Проходные этапы: заказ фиксируется в них, но сразу переходит дальше
var passThroughStages = map[OrderStage]struct{}{
	StagePlanned: {},
}

// IsValid проверяет, что значение этапа определено
func (s OrderStage) IsValid() bool {
	if s == StageOnHold {
		return true
	}
	_, ok := stageIndex[s]
	return ok
}

// IsTimed сообщает, управляется ли этап таймером
func (s OrderStage) IsTimed() bool {
	_, ok := timedStages[s]
	return ok
}

// IsPassThrough сообщает, что этап не задерживает заказ
func (s OrderStage) IsPassThrough() bool {
	_, ok := passThroughStages[s]
	return ok
}

// IsTerminal - завершенный заказ дальше не движется
func (s OrderStage) IsTerminal() bool {
	return s == StageCompleted
}

// Next возвращает следующий этап последовательности
func (s OrderStage) Next() (OrderStage, bool) {
	i, ok := stageIndex[s]
	if !ok || i+1 >= len(StageSequence) {
		return "", false
	}
	return StageSequence[i+1], true
}

// Position возвращает индекс этапа в последовательности (-1 для on_hold и неизвестных)
func (s OrderStage) Position() int {
	if i, ok := stageIndex[s]; ok {
		return i
	}
	return -1
}

// ParseStage разбирает строковое значение этапа
func ParseStage(value string) (OrderStage, bool) {
	stage := OrderStage(value)
	return stage, stage.IsValid()
}
