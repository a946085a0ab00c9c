package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	APM - demultiplexes inbound alarm-channel traffic (TACK
 *		and controller-originated alarms) to the owning AR's two
 *		ALPM instances, reassembling multi-fragment alarm PDUs and
 *		delivering the result to the application.
 *
 *---------------------------------------------------------------*/

// apmChannel is one priority's inbound reassembly/dedup state.
type apmChannel struct {
	haveLastDelivered bool
	lastDelivered     uint16

	reassembling bool
	buf          []byte
	pending      AlarmPDU
}

// APM is the per-AR alarm receive dispatcher.
type APM struct {
	ar *AR

	low, high apmChannel
}

// NewAPM constructs the dispatcher for an AR's two alarm channels.
func NewAPM(ar *AR) *APM {
	return &APM{ar: ar}
}

func (m *APM) channel(priority AlarmPriority) *apmChannel {
	if priority == AlarmPriorityHigh {
		return &m.high
	}
	return &m.low
}

// OnTACK routes an acknowledgement to the channel of the given priority.
func (m *APM) OnTACK(priority AlarmPriority, seq uint16) {
	switch priority {
	case AlarmPriorityLow:
		if m.ar.AlarmLow != nil {
			m.ar.AlarmLow.OnTACK(seq)
		}
	case AlarmPriorityHigh:
		if m.ar.AlarmHigh != nil {
			m.ar.AlarmHigh.OnTACK(seq)
		}
	}
}

// OnControllerAlarm handles one alarm PDU sent by the controller to the
// device (rare in practice - mostly DControl plug-check alarms). Every
// fragment is TACK'd on receipt; fragments carrying MoreFollows are
// accumulated and not delivered until the terminal fragment arrives. A
// PDU whose sequence number matches the channel's last delivered PDU is a
// retransmission - re-acked without redelivering to the application.
func (m *APM) OnControllerAlarm(priority AlarmPriority, pdu AlarmPDU, ackSender AlarmSender) {
	var ch = m.channel(priority)

	if !ch.reassembling && ch.haveLastDelivered && pdu.SequenceNum == ch.lastDelivered {
		m.ack(ackSender, priority, pdu.SequenceNum)
		return
	}

	if pdu.MoreFollows {
		if !ch.reassembling {
			ch.reassembling = true
			ch.buf = nil
			ch.pending = pdu
			ch.pending.Payload = nil
			ch.pending.MoreFollows = false
		}
		ch.buf = append(ch.buf, pdu.Payload...)
		m.ack(ackSender, priority, pdu.SequenceNum)
		return
	}

	var final = pdu
	if ch.reassembling {
		ch.buf = append(ch.buf, pdu.Payload...)
		final = ch.pending
		final.SequenceNum = pdu.SequenceNum
		final.Payload = ch.buf
		ch.reassembling = false
		ch.buf = nil
	}

	ch.haveLastDelivered = true
	ch.lastDelivered = pdu.SequenceNum

	if m.ar.device.Callbacks != nil {
		m.ar.device.Callbacks.AlarmInd(m.ar.AREP, priority, final)
	}

	m.ack(ackSender, priority, pdu.SequenceNum)
}

func (m *APM) ack(sender AlarmSender, priority AlarmPriority, seq uint16) {
	if sender != nil {
		_ = sender.SendAlarm(m.ar.AREP, priority, AlarmPDU{SequenceNum: seq})
	}

	if m.ar.device.Callbacks != nil {
		m.ar.device.Callbacks.AlarmAckCnf(m.ar.AREP, priority, seq)
	}
}
