package lights

import (
	"devicelights-go/bus"
	"devicelights-go/types"
)

// Topic layout:
//
//	lights/ctrl/<light>/<param|get>   request, optional reply
//	lights/state/<light>/<param>      retained value
//	lights/anim/trigger               request, payload event name
//	lights/anim/state                 retained types.AnimStatus
//	lights/list                       request, reply []types.LightInfo
//	lights/service/state              retained types.ServiceState
const (
	Prefix = "lights"

	tokCtrl    = "ctrl"
	tokState   = "state"
	tokAnim    = "anim"
	tokTrigger = "trigger"
	tokList    = "list"
	tokService = "service"

	verbGet = "get"
)

// TopicCtrl is where a command for light/param is sent.
func TopicCtrl(light string, p types.Param) bus.Topic {
	return bus.T(Prefix, tokCtrl, light, string(p))
}

// TopicGet requests a types.LightInfo snapshot of one light.
func TopicGet(light string) bus.Topic { return bus.T(Prefix, tokCtrl, light, verbGet) }

func TopicTrigger() bus.Topic { return topicAnimTrigger() }
func TopicList() bus.Topic    { return topicList() }

// TopicStateWildcard matches every retained light value.
func TopicStateWildcard() bus.Topic { return bus.T(Prefix, tokState, bus.WildOne, bus.WildOne) }

func topicState(light string, p types.Param) bus.Topic {
	return bus.T(Prefix, tokState, light, string(p))
}

func topicCtrlWildcard() bus.Topic { return bus.T(Prefix, tokCtrl, bus.WildOne, bus.WildOne) }
func topicAnimTrigger() bus.Topic  { return bus.T(Prefix, tokAnim, tokTrigger) }
func topicAnimState() bus.Topic    { return bus.T(Prefix, tokAnim, tokState) }
func topicList() bus.Topic         { return bus.T(Prefix, tokList) }
func topicServiceState() bus.Topic { return bus.T(Prefix, tokService, tokState) }

// TopicState is the retained value topic for light/param.
func TopicState(light string, p types.Param) bus.Topic { return topicState(light, p) }

// TopicAnimState is the retained animation status topic.
func TopicAnimState() bus.Topic { return topicAnimState() }
